package workspace

import (
	"context"

	"github.com/mattjoyce/dabops/internal/workflow"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/mattjoyce/dabops/internal/workspace Client

// Info describes the connected workspace.
type Info struct {
	Host     string `json:"host"`
	User     string `json:"current_user"`
	AuthType string `json:"auth_type"`
}

// Client is the remote workspace service as seen by discovery and bundle
// generation. Implementations return *RemoteError for categorized service
// failures and wrap ErrAuthentication when credentials are rejected.
type Client interface {
	// ListWorkflows returns every job, or only jobs created by the current
	// user when userOnly is set.
	ListWorkflows(ctx context.Context, userOnly bool) ([]workflow.Summary, error)

	// GetWorkflowDetail fetches settings and the most recent runs of a job.
	GetWorkflowDetail(ctx context.Context, jobID int64) (*workflow.Detail, error)

	// FileExists reports whether a workspace object exists at path.
	FileExists(ctx context.Context, path string) (bool, error)

	// UploadFile writes content to path.
	UploadFile(ctx context.Context, path string, content []byte, overwrite bool) error

	// EnsureDirectory creates path and its parents. It is idempotent.
	EnsureDirectory(ctx context.Context, path string) error

	// CurrentUser returns the user name the client is authenticated as.
	CurrentUser(ctx context.Context) (string, error)

	// Info describes the workspace connection.
	Info(ctx context.Context) (Info, error)
}
