// Package batch generates bundles for a selection of workflows, one at a
// time, and records the outcome of each in a caller-owned Session.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/dabops/internal/bundle"
	"github.com/mattjoyce/dabops/internal/workflow"
	"github.com/mattjoyce/dabops/internal/workspace"
)

// Options controls one batch. An empty Prefix names each bundle after its
// workflow.
type Options struct {
	Prefix              string      `json:"prefix"`
	Mode                bundle.Mode `json:"mode"`
	IncludeDependencies bool        `json:"include_dependencies"`
	AutoSave            bool        `json:"auto_save"`
	ClearPrevious       bool        `json:"clear_previous"`
	DownloadAll         bool        `json:"download_all"`
}

// SaveResult is the outcome of persisting one document.
type SaveResult struct {
	Path  string `json:"path"`
	Saved bool   `json:"saved"`
	Error string `json:"error,omitempty"`
}

// Generated is one successfully serialized document.
type Generated struct {
	ID           string      `json:"id"`
	BatchID      string      `json:"batch_id"`
	JobID        int64       `json:"job_id"`
	WorkflowName string      `json:"workflow_name"`
	BundleName   string      `json:"bundle_name"`
	FileName     string      `json:"file_name"`
	Mode         bundle.Mode `json:"mode"`
	Content      string      `json:"content"`
	Digest       string      `json:"digest"`
	// Unchanged is set when the previous document for the same job and mode
	// in this session has the same body digest.
	Unchanged   bool        `json:"unchanged"`
	GeneratedAt time.Time   `json:"generated_at"`
	Save        *SaveResult `json:"save,omitempty"`
}

// Failure records a workflow that produced no document.
type Failure struct {
	BatchID      string `json:"batch_id"`
	JobID        int64  `json:"job_id"`
	WorkflowName string `json:"workflow_name"`
	Reason       string `json:"reason"`
	Err          error  `json:"-"`
}

// Result summarizes one batch.
type Result struct {
	BatchID   string      `json:"batch_id"`
	Generated []Generated `json:"generated"`
	Failures  []Failure   `json:"failures"`
	// Archive holds a ZIP of the generated documents when DownloadAll was set.
	Archive []byte `json:"-"`
}

// Progress reports the outcome of one workflow while a batch runs. Reason is
// set when the workflow failed.
type Progress struct {
	BatchID      string `json:"batch_id"`
	Done         int    `json:"done"`
	Total        int    `json:"total"`
	JobID        int64  `json:"job_id"`
	WorkflowName string `json:"workflow_name"`
	FileName     string `json:"file_name,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// ProgressFunc observes a running batch. It is called synchronously from Run.
type ProgressFunc func(Progress)

// HistoryRecorder persists generated documents beyond the session.
type HistoryRecorder interface {
	Record(ctx context.Context, sessionID string, g Generated) error
}

// Generator runs batches against one workspace client.
type Generator struct {
	client     workspace.Client
	translator *bundle.Translator
	emitter    *bundle.Emitter
	outputDir  string
	recorder   HistoryRecorder
	progress   ProgressFunc
	logger     *slog.Logger
	now        func() time.Time
}

// NewGenerator creates a Generator. outputDir may contain a {user}
// placeholder. recorder may be nil.
func NewGenerator(client workspace.Client, translator *bundle.Translator, emitter *bundle.Emitter, outputDir string, recorder HistoryRecorder, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:     client,
		translator: translator,
		emitter:    emitter,
		outputDir:  outputDir,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}
}

// OnProgress registers fn to observe each workflow outcome.
func (g *Generator) OnProgress(fn ProgressFunc) {
	g.progress = fn
}

// Run processes selections sequentially. A workflow that cannot be fetched,
// translated or serialized is recorded as a Failure and the batch continues.
// Authentication failures and context cancellation abort the batch.
func (g *Generator) Run(ctx context.Context, session *Session, selections []workflow.Summary, opts Options) (*Result, error) {
	if opts.Prefix != "" {
		if err := bundle.ValidateBundleName(opts.Prefix); err != nil {
			return nil, err
		}
	}
	if opts.Mode == "" {
		opts.Mode = bundle.ModeFull
	}

	res := &Result{BatchID: uuid.NewString()}
	for i, wf := range selections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gen, err := g.generate(ctx, session, wf, opts, len(selections))
		if errors.Is(err, workspace.ErrAuthentication) {
			return nil, err
		}
		if err != nil {
			f := Failure{
				BatchID:      res.BatchID,
				JobID:        wf.JobID,
				WorkflowName: wf.DisplayName(),
				Reason:       workspace.UserMessage(err),
				Err:          err,
			}
			res.Failures = append(res.Failures, f)
			g.logger.Info("workflow failed", "job_id", wf.JobID, "error", err)
			g.report(Progress{BatchID: res.BatchID, Done: i + 1, Total: len(selections), JobID: f.JobID, WorkflowName: f.WorkflowName, Reason: f.Reason})
			continue
		}
		gen.BatchID = res.BatchID
		res.Generated = append(res.Generated, gen)
		g.logger.Info("workflow generated", "job_id", wf.JobID, "bundle", gen.BundleName, "unchanged", gen.Unchanged)
		g.report(Progress{BatchID: res.BatchID, Done: i + 1, Total: len(selections), JobID: gen.JobID, WorkflowName: gen.WorkflowName, FileName: gen.FileName})
	}

	if opts.AutoSave && len(res.Generated) > 0 {
		g.save(ctx, res.Generated)
	}

	session.record(opts.ClearPrevious, res)
	if g.recorder != nil {
		for _, gen := range res.Generated {
			if err := g.recorder.Record(ctx, session.ID, gen); err != nil {
				g.logger.Warn("failed to persist history", "id", gen.ID, "error", err)
			}
		}
	}

	if opts.DownloadAll && len(res.Generated) > 0 {
		var buf bytes.Buffer
		if err := bundle.WriteArchive(&buf, archiveEntries(res.Generated), g.now()); err != nil {
			return res, fmt.Errorf("build archive: %w", err)
		}
		res.Archive = buf.Bytes()
	}
	return res, nil
}

func (g *Generator) report(p Progress) {
	if g.progress != nil {
		g.progress(p)
	}
}

func (g *Generator) generate(ctx context.Context, session *Session, wf workflow.Summary, opts Options, batchSize int) (Generated, error) {
	detail, err := g.client.GetWorkflowDetail(ctx, wf.JobID)
	if err != nil {
		return Generated{}, err
	}
	if detail == nil {
		return Generated{}, fmt.Errorf("workflow %d: details not found", wf.JobID)
	}

	bundleName := bundle.JobKey(detail.Name) + "_bundle"
	if opts.Prefix != "" {
		bundleName = bundle.BundleName(opts.Prefix, detail.Name, batchSize)
	}
	doc, err := g.translator.Translate(ctx, detail, bundle.Request{
		Mode:                opts.Mode,
		IncludeDependencies: opts.IncludeDependencies,
		BundleName:          bundleName,
	})
	if err != nil {
		return Generated{}, err
	}

	at := g.now()
	content, err := g.emitter.Serialize(doc, bundle.NewHeader(opts.Mode, doc, detail.Summary, at))
	if err != nil {
		return Generated{}, err
	}

	gen := Generated{
		ID:           uuid.NewString(),
		JobID:        detail.JobID,
		WorkflowName: detail.DisplayName(),
		BundleName:   bundleName,
		FileName:     bundle.FileName(bundleName),
		Mode:         opts.Mode,
		Content:      content,
		Digest:       bundle.Digest(content),
		GeneratedAt:  at,
	}
	if prev, ok := session.previous(gen.JobID, gen.Mode); ok && prev.Digest == gen.Digest {
		gen.Unchanged = true
	}
	return gen, nil
}

// save persists every document under the per-user output folder. Failures
// are recorded on the document and never abort the batch.
func (g *Generator) save(ctx context.Context, gens []Generated) {
	fail := func(err error) {
		for i := range gens {
			gens[i].Save = &SaveResult{Error: workspace.UserMessage(err)}
		}
		g.logger.Error("auto-save failed", "error", err)
	}

	user, err := g.client.CurrentUser(ctx)
	if err != nil {
		fail(err)
		return
	}
	folder := bundle.WorkspacePath(g.outputDir, user)
	if err := g.client.EnsureDirectory(ctx, folder); err != nil {
		fail(err)
		return
	}

	exists := func(p string) (bool, error) { return g.client.FileExists(ctx, p) }
	for i := range gens {
		target := bundle.UniqueDestinationName(exists, folder, gens[i].FileName, g.now())
		if err := g.client.UploadFile(ctx, target, []byte(gens[i].Content), true); err != nil {
			gens[i].Save = &SaveResult{Path: target, Error: workspace.UserMessage(err)}
			g.logger.Warn("failed to save bundle", "path", target, "error", err)
			continue
		}
		gens[i].Save = &SaveResult{Path: target, Saved: true}
	}
}
