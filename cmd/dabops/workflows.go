package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/dabops/internal/batch"
	"github.com/mattjoyce/dabops/internal/log"
	"github.com/mattjoyce/dabops/internal/workflow"
)

func newListCmd(c *cli) *cobra.Command {
	var (
		mine    bool
		search  string
		sortKey string
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows in the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseSortKey(sortKey)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = c.cfg.Workspace.MaxWorkflows
			}
			client, err := c.workspaceClient()
			if err != nil {
				return err
			}

			list, msg, err := batch.Discover(cmd.Context(), client, batch.Query{
				UserOnly: mine,
				Search:   search,
				Sort:     key,
				Limit:    limit,
			}, log.WithComponent("discover"))
			if err != nil {
				return err
			}

			if jsonOut {
				if msg != "" {
					fmt.Fprintln(c.errOut, msg)
				}
				return c.printJSON(list)
			}
			fmt.Fprint(c.out, c.renderer.Workflows(list, msg))
			return nil
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "Only workflows created by the current user")
	cmd.Flags().StringVar(&search, "search", "", "Filter by name or description substring, or exact job id")
	cmd.Flags().StringVar(&sortKey, "sort", "", "Order by name, created, modified or id")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum workflows to show (default workspace.max_workflows)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func parseSortKey(s string) (batch.SortKey, error) {
	switch key := batch.SortKey(s); key {
	case "", batch.SortName, batch.SortCreated, batch.SortModified, batch.SortID:
		return key, nil
	default:
		return "", fmt.Errorf("unknown sort %q (want name, created, modified or id)", s)
	}
}

func newShowCmd(c *cli) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a workflow's tasks, schedule and recent runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			client, err := c.workspaceClient()
			if err != nil {
				return err
			}

			detail, err := client.GetWorkflowDetail(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			if detail == nil {
				return fmt.Errorf("workflow %d not found", jobID)
			}
			log.WithJob(jobID).Debug("workflow loaded", "has_settings", detail.Settings != nil, "runs", len(detail.RecentRuns))

			overview := workflow.NewOverview(detail, time.Now())
			if jsonOut {
				return c.printJSON(overview)
			}
			fmt.Fprint(c.out, c.renderer.Overview(overview))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func parseJobID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", s)
	}
	return id, nil
}
