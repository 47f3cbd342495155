package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/dabops/internal/batch"
	"github.com/mattjoyce/dabops/internal/bundle"
	"github.com/mattjoyce/dabops/internal/log"
	"github.com/mattjoyce/dabops/internal/tui"
	"github.com/mattjoyce/dabops/internal/workflow"
	"github.com/mattjoyce/dabops/internal/workspace"
)

type generateFlags struct {
	pick          bool
	prefix        string
	resourcesOnly bool
	noDeps        bool
	save          bool
	noSave        bool
	clearPrevious bool
	archive       string
	outDir        string
	print         bool
	jsonOut       bool
}

func newGenerateCmd(c *cli) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate [job-id...]",
		Short: "Generate bundle documents for one or more workflows",
		Long: `Generate translates each selected workflow into a bundle document.

Workflows that cannot be fetched or translated are reported as failures and
the rest of the batch continues. Documents are saved to bundle.output_dir in
the workspace when auto-save is on, written locally with --out, and bundled
into a ZIP with --archive.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !f.pick {
				return errors.New("specify at least one job id or --pick")
			}
			if f.save && f.noSave {
				return errors.New("--save and --no-save are mutually exclusive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), args, f)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&f.pick, "pick", false, "Choose workflows interactively")
	flags.StringVar(&f.prefix, "prefix", "", "Bundle name prefix")
	flags.BoolVar(&f.resourcesOnly, "resources-only", false, "Emit only the resources section")
	flags.BoolVar(&f.noDeps, "no-deps", false, "Skip dependency analysis")
	flags.BoolVar(&f.save, "save", false, "Save documents to the workspace")
	flags.BoolVar(&f.noSave, "no-save", false, "Do not save documents to the workspace")
	flags.BoolVar(&f.clearPrevious, "clear-previous", false, "Replace the session's current results instead of appending")
	flags.StringVar(&f.archive, "archive", "", "Write a ZIP of the generated documents to this file")
	flags.StringVar(&f.outDir, "out", "", "Write each document to this local directory")
	flags.BoolVar(&f.print, "print", false, "Print each document to stdout")
	flags.BoolVar(&f.jsonOut, "json", false, "Output the batch result as JSON")
	return cmd
}

func (c *cli) runGenerate(ctx context.Context, args []string, f generateFlags) error {
	opts := c.batchDefaults()
	opts.Prefix = f.prefix
	opts.ClearPrevious = f.clearPrevious
	opts.DownloadAll = f.archive != ""
	if f.resourcesOnly {
		opts.Mode = bundle.ModeResourcesOnly
	}
	if f.noDeps {
		opts.IncludeDependencies = false
	}
	switch {
	case f.save:
		opts.AutoSave = true
	case f.noSave:
		opts.AutoSave = false
	}
	if opts.Prefix != "" {
		if err := bundle.ValidateBundleName(opts.Prefix); err != nil {
			return err
		}
	}

	client, err := c.workspaceClient()
	if err != nil {
		return err
	}

	selections, err := c.selectWorkflows(ctx, client, args, f.pick)
	if err != nil {
		return err
	}
	if len(selections) == 0 {
		fmt.Fprintln(c.errOut, "No workflows selected.")
		return nil
	}

	store, closeStore, err := c.openHistory(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	var recorder batch.HistoryRecorder
	if store != nil {
		recorder = store
	}

	gen, err := c.generator(ctx, client, recorder)
	if err != nil {
		return err
	}
	session := batch.NewSession()
	res, err := gen.Run(ctx, session, selections, opts)
	if err != nil {
		return err
	}
	log.WithBatch(res.BatchID).Info("batch complete", "generated", len(res.Generated), "failed", len(res.Failures))

	if f.outDir != "" {
		if err := writeDocuments(f.outDir, res.Generated); err != nil {
			return err
		}
	}
	if f.archive != "" && len(res.Archive) > 0 {
		if err := os.WriteFile(f.archive, res.Archive, 0o644); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
	}

	if f.jsonOut {
		if err := c.printJSON(res); err != nil {
			return err
		}
	} else {
		fmt.Fprint(c.out, c.renderer.BatchResult(res))
		if f.archive != "" && len(res.Archive) > 0 {
			fmt.Fprintf(c.out, "archive: %s\n", f.archive)
		}
	}
	if f.print {
		for _, g := range res.Generated {
			fmt.Fprintf(c.out, "---\n%s", g.Content)
		}
	}

	if len(res.Generated) == 0 && len(res.Failures) > 0 {
		return &exitError{code: 1}
	}
	return nil
}

// selectWorkflows resolves job ids to summaries, or runs the picker. Ids
// missing from the listing are kept so the batch records them as failures.
func (c *cli) selectWorkflows(ctx context.Context, client workspace.Client, args []string, pick bool) ([]workflow.Summary, error) {
	if pick {
		list, msg, err := batch.Discover(ctx, client, batch.Query{
			Sort:  batch.SortName,
			Limit: c.cfg.Workspace.MaxWorkflows,
		}, log.WithComponent("discover"))
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			fmt.Fprint(c.errOut, c.renderer.Workflows(list, msg))
			return nil, nil
		}
		return tui.Pick(list, c.in, c.out)
	}

	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseJobID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	known := map[int64]workflow.Summary{}
	list, err := client.ListWorkflows(ctx, false)
	switch {
	case errors.Is(err, workspace.ErrAuthentication):
		return nil, err
	case err != nil:
		log.Debug("workflow names unavailable", "error", err)
	}
	for _, wf := range list {
		known[wf.JobID] = wf
	}

	out := make([]workflow.Summary, 0, len(ids))
	for _, id := range ids {
		wf, ok := known[id]
		if !ok {
			wf = workflow.Summary{JobID: id}
		}
		out = append(out, wf)
	}
	return out, nil
}

// writeDocuments writes each document under dir. Local names are made unique
// the same way workspace saves are.
func writeDocuments(dir string, gens []batch.Generated) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	exists := func(p string) (bool, error) {
		_, err := os.Stat(filepath.FromSlash(p))
		if os.IsNotExist(err) {
			return false, nil
		}
		return err == nil, err
	}
	for _, g := range gens {
		target := bundle.UniqueDestinationName(exists, filepath.ToSlash(dir), g.FileName, g.GeneratedAt)
		if err := os.WriteFile(filepath.FromSlash(target), []byte(g.Content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
	}
	return nil
}
