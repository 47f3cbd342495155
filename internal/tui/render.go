package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mattjoyce/dabops/internal/batch"
	"github.com/mattjoyce/dabops/internal/state"
	"github.com/mattjoyce/dabops/internal/workflow"
)

// Renderer turns domain values into terminal text.
type Renderer struct {
	theme Theme
}

func NewRenderer(theme Theme) *Renderer {
	return &Renderer{theme: theme}
}

func (r *Renderer) table(headers []string, rows [][]string) string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.theme.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.theme.Header
			}
			return cell
		}).
		String()
}

// Workflows renders a discovery listing. msg is shown when the list is empty.
func (r *Renderer) Workflows(list []workflow.Summary, msg string) string {
	if len(list) == 0 {
		if msg == "" {
			msg = "No workflows found."
		}
		return r.theme.Dim.Render(msg) + "\n"
	}
	rows := make([][]string, 0, len(list))
	for _, wf := range list {
		rows = append(rows, []string{
			strconv.FormatInt(wf.JobID, 10),
			truncate(wf.DisplayName(), 40),
			wf.CreatorUserName,
			workflow.FormatTimestamp(wf.CreatedTime),
			formatTags(wf.Tags),
		})
	}
	return r.table([]string{"JOB ID", "NAME", "CREATOR", "CREATED", "TAGS"}, rows) +
		"\n" + r.theme.Dim.Render(fmt.Sprintf("%d workflow(s)", len(list))) + "\n"
}

// Overview renders a single workflow with tasks, schedule and recent runs.
func (r *Renderer) Overview(o workflow.Overview) string {
	var b strings.Builder
	b.WriteString(r.theme.Title.Render(o.DisplayName()) + "\n")
	field := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(r.theme.Label.Render(label) + value + "\n")
	}
	field("Job ID", strconv.FormatInt(o.JobID, 10))
	field("Description", o.Description)
	field("Creator", o.CreatorUserName)
	field("Created", workflow.FormatTimestamp(o.CreatedTime))
	field("Tags", formatTags(o.Tags))

	if !o.HasSettings {
		b.WriteString(r.theme.StatusWarn.Render("No settings returned for this workflow; it cannot be translated.") + "\n")
		return b.String()
	}

	if s := o.Schedule; s != nil {
		b.WriteString("\n" + r.theme.Highlight.Render("Schedule") + "\n")
		field("Expression", s.Expression)
		field("Timezone", s.Timezone)
		field("Status", s.PauseStatus)
		field("Description", s.Description)
		if s.Next != nil {
			field("Next run", s.Next.Format(time.RFC3339))
		}
		if s.Error != "" {
			b.WriteString(r.theme.StatusFailed.Render(s.Error) + "\n")
		}
	}

	b.WriteString("\n" + r.theme.Highlight.Render(fmt.Sprintf("Tasks (%d)", len(o.Tasks))) + "\n")
	if len(o.Tasks) > 0 {
		rows := make([][]string, 0, len(o.Tasks))
		for _, t := range o.Tasks {
			rows = append(rows, []string{t.Key, t.Kind, strings.Join(t.DependsOn, ", "), t.Compute, strconv.Itoa(t.Libraries)})
		}
		b.WriteString(r.table([]string{"TASK", "KIND", "DEPENDS ON", "COMPUTE", "LIBS"}, rows) + "\n")
	}

	b.WriteString("\n" + r.theme.Highlight.Render("Recent runs") + "\n")
	if len(o.RecentRuns) == 0 {
		b.WriteString(r.theme.Dim.Render("No recent runs.") + "\n")
		return b.String()
	}
	rows := make([][]string, 0, len(o.RecentRuns))
	for _, run := range o.RecentRuns {
		rows = append(rows, []string{
			strconv.FormatInt(run.RunID, 10),
			workflow.FormatTimestamp(run.StartTime),
			workflow.FormatTimestamp(run.EndTime),
			run.LifeCycleState,
			r.result(run.ResultState),
		})
	}
	b.WriteString(r.table([]string{"RUN ID", "STARTED", "ENDED", "STATE", "RESULT"}, rows) + "\n")
	return b.String()
}

func (r *Renderer) result(state string) string {
	switch state {
	case "SUCCESS":
		return r.theme.StatusOK.Render(state)
	case "":
		return "-"
	default:
		return r.theme.StatusFailed.Render(state)
	}
}

// BatchResult renders generated documents and failures of one batch.
func (r *Renderer) BatchResult(res *batch.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.theme.Title.Render("Batch"), r.theme.Dim.Render(res.BatchID))

	if len(res.Generated) > 0 {
		rows := make([][]string, 0, len(res.Generated))
		for _, g := range res.Generated {
			status := r.theme.StatusOK.Render("generated")
			if g.Unchanged {
				status = r.theme.Dim.Render("unchanged")
			}
			rows = append(rows, []string{strconv.FormatInt(g.JobID, 10), truncate(g.WorkflowName, 32), g.FileName, status, r.save(g.Save)})
		}
		b.WriteString(r.table([]string{"JOB ID", "WORKFLOW", "FILE", "STATUS", "SAVED TO"}, rows) + "\n")
	}

	if len(res.Failures) > 0 {
		rows := make([][]string, 0, len(res.Failures))
		for _, f := range res.Failures {
			rows = append(rows, []string{strconv.FormatInt(f.JobID, 10), truncate(f.WorkflowName, 32), r.theme.StatusFailed.Render(f.Reason)})
		}
		b.WriteString(r.table([]string{"JOB ID", "WORKFLOW", "FAILURE"}, rows) + "\n")
	}

	fmt.Fprintf(&b, "%d generated, %d failed\n", len(res.Generated), len(res.Failures))
	return b.String()
}

func (r *Renderer) save(s *batch.SaveResult) string {
	switch {
	case s == nil:
		return "-"
	case s.Saved:
		return s.Path
	default:
		return r.theme.StatusFailed.Render("failed: " + s.Error)
	}
}

// History renders persisted entries, newest first.
func (r *Renderer) History(entries []state.Entry) string {
	if len(entries) == 0 {
		return r.theme.Dim.Render("No generation history.") + "\n"
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		saved := e.SavedPath
		if saved == "" && e.SaveError != "" {
			saved = r.theme.StatusFailed.Render("failed: " + e.SaveError)
		}
		if saved == "" {
			saved = "-"
		}
		rows = append(rows, []string{
			e.GeneratedAt.UTC().Format("2006-01-02 15:04:05"),
			strconv.FormatInt(e.JobID, 10),
			truncate(e.WorkflowName, 32),
			e.FileName,
			string(e.Mode),
			shortDigest(e.Digest),
			saved,
		})
	}
	return r.table([]string{"GENERATED", "JOB ID", "WORKFLOW", "FILE", "MODE", "DIGEST", "SAVED TO"}, rows) + "\n"
}

func formatTags(tags workflow.StringMap) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag.Value == "" {
			parts = append(parts, tag.Key)
			continue
		}
		parts = append(parts, tag.Key+"="+tag.Value)
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
