package api

import (
	"github.com/mattjoyce/dabops/internal/batch"
	"github.com/mattjoyce/dabops/internal/bundle"
	"github.com/mattjoyce/dabops/internal/state"
	"github.com/mattjoyce/dabops/internal/workflow"
)

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status         string `json:"status"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	SessionID      string `json:"session_id"`
	CurrentBundles int    `json:"current_bundles"`
	HistoryEnabled bool   `json:"history_enabled"`
	GenerationBusy bool   `json:"generation_busy"`
}

// WorkflowListResponse is returned by GET /workflows. Message carries the
// user-facing reason when the listing failed and Workflows is empty.
type WorkflowListResponse struct {
	Workflows []workflow.Summary `json:"workflows"`
	Count     int                `json:"count"`
	Message   string             `json:"message,omitempty"`
}

// GenerateRequest is the JSON body for POST /bundles. Nil booleans take the
// server defaults.
type GenerateRequest struct {
	JobIDs              []int64     `json:"job_ids"`
	Prefix              string      `json:"prefix,omitempty"`
	Mode                bundle.Mode `json:"mode,omitempty"`
	IncludeDependencies *bool       `json:"include_dependencies,omitempty"`
	AutoSave            *bool       `json:"auto_save,omitempty"`
	ClearPrevious       bool        `json:"clear_previous,omitempty"`
}

// GenerateResponse is returned by POST /bundles.
type GenerateResponse struct {
	BatchID   string            `json:"batch_id"`
	Generated []batch.Generated `json:"generated"`
	Failures  []batch.Failure   `json:"failures"`
}

// BundleListResponse is returned by GET /bundles.
type BundleListResponse struct {
	SessionID string            `json:"session_id"`
	Bundles   []batch.Generated `json:"bundles"`
}

// HistoryResponse is returned by GET /history.
type HistoryResponse struct {
	Entries []state.Entry `json:"entries"`
}
