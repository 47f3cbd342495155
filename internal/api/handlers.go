package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mattjoyce/dabops/internal/batch"
	"github.com/mattjoyce/dabops/internal/bundle"
	"github.com/mattjoyce/dabops/internal/events"
	"github.com/mattjoyce/dabops/internal/state"
	"github.com/mattjoyce/dabops/internal/workflow"
	"github.com/mattjoyce/dabops/internal/workspace"
)

const maxRequestBytes = 1 << 20

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:         "ok",
		UptimeSeconds:  int64(time.Since(s.startedAt).Seconds()),
		SessionID:      s.session.ID,
		CurrentBundles: len(s.session.Current()),
		HistoryEnabled: s.history != nil,
		GenerationBusy: len(s.genSlot) > 0,
	})
}

// handleListWorkflows handles GET /workflows?mine=&search=&sort=&limit=
func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	q := batch.Query{
		Search: r.URL.Query().Get("search"),
		Sort:   batch.SortKey(r.URL.Query().Get("sort")),
		Limit:  s.config.MaxWorkflows,
	}
	switch q.Sort {
	case "", batch.SortName, batch.SortCreated, batch.SortModified, batch.SortID:
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid sort %q", q.Sort))
		return
	}
	if v := r.URL.Query().Get("mine"); v != "" {
		mine, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "mine must be a boolean")
			return
		}
		q.UserOnly = mine
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if q.Limit <= 0 || n < q.Limit {
			q.Limit = n
		}
	}

	list, msg, err := batch.Discover(r.Context(), s.client, q, s.logger)
	if err != nil {
		s.writeRemoteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, WorkflowListResponse{Workflows: list, Count: len(list), Message: msg})
}

// handleGetWorkflow handles GET /workflows/{jobID}
func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
	if err != nil || jobID <= 0 {
		s.writeError(w, http.StatusBadRequest, "job id must be a positive integer")
		return
	}

	detail, err := s.client.GetWorkflowDetail(r.Context(), jobID)
	if err != nil {
		s.writeRemoteError(w, err)
		return
	}
	if detail == nil {
		s.writeError(w, http.StatusNotFound, "workflow details not found")
		return
	}
	respondJSON(w, http.StatusOK, workflow.NewOverview(detail, s.now()))
}

// handleListBundles handles GET /bundles
func (s *Server) handleListBundles(w http.ResponseWriter, r *http.Request) {
	current := s.session.Current()
	if current == nil {
		current = []batch.Generated{}
	}
	respondJSON(w, http.StatusOK, BundleListResponse{SessionID: s.session.ID, Bundles: current})
}

// handleGenerate handles POST /bundles. Only one batch runs at a time; a
// request arriving while another is in flight gets 409.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	opts, err := s.batchOptions(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	select {
	case s.genSlot <- struct{}{}:
		defer func() { <-s.genSlot }()
	default:
		s.writeError(w, http.StatusConflict, "a bundle generation is already running")
		return
	}

	selections := s.selections(r, req.JobIDs)
	s.publish(events.TypeBatchStarted, map[string]any{"total": len(selections), "mode": opts.Mode})
	res, err := s.generator.Run(r.Context(), s.session, selections, opts)
	if err != nil {
		s.publish(events.TypeBatchCompleted, map[string]any{"error": err.Error()})
		s.writeRemoteError(w, err)
		return
	}
	s.publish(events.TypeBatchCompleted, map[string]any{
		"batch_id":  res.BatchID,
		"generated": len(res.Generated),
		"failed":    len(res.Failures),
	})

	resp := GenerateResponse{BatchID: res.BatchID, Generated: res.Generated, Failures: res.Failures}
	if resp.Generated == nil {
		resp.Generated = []batch.Generated{}
	}
	if resp.Failures == nil {
		resp.Failures = []batch.Failure{}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) batchOptions(req GenerateRequest) (batch.Options, error) {
	if len(req.JobIDs) == 0 {
		return batch.Options{}, errors.New("job_ids is required")
	}
	if s.config.MaxWorkflows > 0 && len(req.JobIDs) > s.config.MaxWorkflows {
		return batch.Options{}, fmt.Errorf("at most %d workflows per request", s.config.MaxWorkflows)
	}
	if req.Prefix != "" {
		if err := bundle.ValidateBundleName(req.Prefix); err != nil {
			return batch.Options{}, err
		}
	}
	switch req.Mode {
	case "", bundle.ModeFull, bundle.ModeResourcesOnly:
	default:
		return batch.Options{}, fmt.Errorf("invalid mode %q", req.Mode)
	}

	opts := s.config.Defaults
	opts.Prefix = req.Prefix
	opts.ClearPrevious = req.ClearPrevious
	opts.DownloadAll = false
	if req.Mode != "" {
		opts.Mode = req.Mode
	}
	if req.IncludeDependencies != nil {
		opts.IncludeDependencies = *req.IncludeDependencies
	}
	if req.AutoSave != nil {
		opts.AutoSave = *req.AutoSave
	}
	return opts, nil
}

// selections resolves workflow names from the listing so failures carry a
// readable name. Unknown ids are passed through with the id only.
func (s *Server) selections(r *http.Request, ids []int64) []workflow.Summary {
	names := map[int64]workflow.Summary{}
	if list, err := s.client.ListWorkflows(r.Context(), false); err != nil {
		s.logger.Debug("workflow names unavailable", "error", err)
	} else {
		for _, wf := range list {
			names[wf.JobID] = wf
		}
	}
	out := make([]workflow.Summary, 0, len(ids))
	for _, id := range ids {
		wf, ok := names[id]
		if !ok {
			wf = workflow.Summary{JobID: id}
		}
		out = append(out, wf)
	}
	return out
}

// handleArchive handles GET /bundles/archive
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if len(s.session.Current()) == 0 {
		s.writeError(w, http.StatusNotFound, "no bundles generated in this session")
		return
	}
	now := s.now()
	var buf bytes.Buffer
	if err := s.session.WriteArchive(&buf, now); err != nil {
		s.logger.Error("failed to build archive", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bundles_%s.zip"`, now.UTC().Format("20060102_150405")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleHistory handles GET /history?limit=&job_id=
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	var q state.Query
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		q.Limit = n
	}
	if v := r.URL.Query().Get("job_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "job_id must be an integer")
			return
		}
		q.JobID = id
	}

	entries, err := s.history.List(r.Context(), q)
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if entries == nil {
		entries = []state.Entry{}
	}
	respondJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, buildOpenAPIDoc())
}

// writeRemoteError maps workspace error kinds to HTTP statuses. The body
// carries the user-facing message.
func (s *Server) writeRemoteError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var re *workspace.RemoteError
	switch {
	case errors.Is(err, workspace.ErrAuthentication):
		status = http.StatusBadGateway
	case errors.As(err, &re):
		switch re.Category {
		case workspace.CategoryNotFound:
			status = http.StatusNotFound
		case workspace.CategoryPermissionDenied:
			status = http.StatusForbidden
		case workspace.CategoryQuotaExceeded:
			status = http.StatusTooManyRequests
		}
	}
	s.logger.Warn("workspace request failed", "status", status, "error", err)
	s.writeError(w, status, workspace.UserMessage(err))
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
