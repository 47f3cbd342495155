package batch

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/mattjoyce/dabops/internal/workflow"
	"github.com/mattjoyce/dabops/internal/workspace"
)

// SortKey orders discovery results.
type SortKey string

const (
	SortName     SortKey = "name"
	SortCreated  SortKey = "created"
	SortModified SortKey = "modified"
	SortID       SortKey = "id"
)

// Query filters and orders a workflow listing.
type Query struct {
	UserOnly bool
	// Search matches a case-insensitive substring of the name or
	// description, or an exact job id.
	Search string
	Sort   SortKey
	// Limit truncates the result when positive.
	Limit int
}

// Discover lists workflows. A categorized remote failure yields an empty list
// and a user-facing message; an authentication failure is returned as err.
func Discover(ctx context.Context, client workspace.Client, q Query, logger *slog.Logger) ([]workflow.Summary, string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	list, err := client.ListWorkflows(ctx, q.UserOnly)
	if err != nil {
		if errors.Is(err, workspace.ErrAuthentication) || errors.Is(err, context.Canceled) {
			return nil, "", err
		}
		logger.Error("failed to list workflows", "error", err)
		return []workflow.Summary{}, workspace.UserMessage(err), nil
	}

	list = filter(list, q.Search)
	sortSummaries(list, q.Sort)
	if q.Limit > 0 && len(list) > q.Limit {
		list = list[:q.Limit]
	}
	return list, "", nil
}

func filter(list []workflow.Summary, search string) []workflow.Summary {
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return list
	}
	out := make([]workflow.Summary, 0, len(list))
	for _, wf := range list {
		if strings.Contains(strings.ToLower(wf.Name), term) ||
			strings.Contains(strings.ToLower(wf.Description), term) ||
			strconv.FormatInt(wf.JobID, 10) == term {
			out = append(out, wf)
		}
	}
	return out
}

// sortSummaries sorts by name ascending, or by time or id descending.
func sortSummaries(list []workflow.Summary, key SortKey) {
	var less func(a, b workflow.Summary) bool
	switch key {
	case SortCreated:
		less = func(a, b workflow.Summary) bool { return a.CreatedTime > b.CreatedTime }
	case SortModified:
		less = func(a, b workflow.Summary) bool { return a.ModifiedTime > b.ModifiedTime }
	case SortID:
		less = func(a, b workflow.Summary) bool { return a.JobID > b.JobID }
	case SortName:
		less = func(a, b workflow.Summary) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	default:
		return
	}
	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
}
