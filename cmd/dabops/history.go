package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/dabops/internal/state"
)

var errHistoryDisabled = errors.New("history is disabled (state.path is empty)")

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		limit   int
		jobID   int64
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previously generated documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := c.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			if store == nil {
				return errHistoryDisabled
			}

			entries, err := store.List(cmd.Context(), state.Query{JobID: jobID, Limit: limit})
			if err != nil {
				return err
			}
			if jsonOut {
				return c.printJSON(entries)
			}
			fmt.Fprint(c.out, c.renderer.History(entries))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to show (default 50)")
	cmd.Flags().Int64Var(&jobID, "job", 0, "Only entries for this job id")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	cmd.AddCommand(newHistoryShowCmd(c), newHistoryPruneCmd(c))
	return cmd
}

func newHistoryShowCmd(c *cli) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := c.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			if store == nil {
				return errHistoryDisabled
			}

			entry, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return c.printJSON(entry)
			}
			fmt.Fprint(c.out, entry.Content)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newHistoryPruneCmd(c *cli) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete stored documents older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				olderThan = c.cfg.State.Retention
			}
			if olderThan <= 0 {
				return errors.New("--older-than is required when state.retention is not set")
			}
			store, closeStore, err := c.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			if store == nil {
				return errHistoryDisabled
			}

			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Removed %d entries older than %s\n", removed, olderThan)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Age cutoff, e.g. 720h (default state.retention)")
	return cmd
}
