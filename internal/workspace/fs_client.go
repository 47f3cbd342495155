package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mattjoyce/dabops/internal/workflow"
)

// fsClient serves workflows from a directory of Jobs API exports and stores
// uploaded files on local disk. Layout under baseDir:
//
//	jobs/<job_id>.json  job object as returned by jobs/get
//	runs/<job_id>.json  {"runs": [...]} as returned by jobs/runs/list
//	files/<path>        objects written by UploadFile and EnsureDirectory
type fsClient struct {
	baseDir string
	user    string
}

var _ Client = (*fsClient)(nil)

// NewFSClient creates a filesystem-backed client rooted at baseDir. user is
// reported as the current user and used for ownership filtering.
func NewFSClient(baseDir, user string) (*fsClient, error) {
	trimmed := strings.TrimSpace(baseDir)
	if trimmed == "" {
		return nil, fmt.Errorf("workspace local directory is empty")
	}
	if user == "" {
		user = "local"
	}
	return &fsClient{baseDir: filepath.Clean(trimmed), user: user}, nil
}

func (c *fsClient) CurrentUser(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.user, nil
}

func (c *fsClient) Info(ctx context.Context) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	return Info{Host: "file://" + filepath.ToSlash(c.baseDir), User: c.user, AuthType: "local"}, nil
}

// ListWorkflows decodes every jobs/*.json export, ordered by job id.
func (c *fsClient) ListWorkflows(ctx context.Context, userOnly bool) ([]workflow.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(c.baseDir, "jobs")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read jobs directory: %w", err)
	}

	var out []workflow.Summary
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		job, err := c.readJob(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if userOnly && job.CreatorUserName != c.user {
			continue
		}
		out = append(out, job.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out, nil
}

// GetWorkflowDetail reads jobs/<id>.json and, when present, runs/<id>.json.
func (c *fsClient) GetWorkflowDetail(ctx context.Context, jobID int64) (*workflow.Detail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := strconv.FormatInt(jobID, 10) + ".json"
	job, err := c.readJob(filepath.Join(c.baseDir, "jobs", name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &RemoteError{
			Category: CategoryNotFound,
			Code:     "RESOURCE_DOES_NOT_EXIST",
			Message:  fmt.Sprintf("job %d does not exist", jobID),
			Status:   http.StatusNotFound,
		}
	}
	if err != nil {
		return nil, err
	}

	var runs struct {
		Runs []workflow.APIRun `json:"runs"`
	}
	data, err := os.ReadFile(filepath.Join(c.baseDir, "runs", name))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &runs); err != nil {
			return nil, fmt.Errorf("decode runs for job %d: %w", jobID, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read runs for job %d: %w", jobID, err)
	}
	return job.Detail(runs.Runs), nil
}

func (c *fsClient) FileExists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	local, err := c.filePath(p)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(local); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", p, err)
	}
	return true, nil
}

// UploadFile writes through a temp file and rename so readers never see a
// partial artifact.
func (c *fsClient) UploadFile(ctx context.Context, p string, content []byte, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	local, err := c.filePath(p)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(local); err == nil {
			return &RemoteError{
				Category: CategoryOther,
				Code:     "RESOURCE_ALREADY_EXISTS",
				Message:  fmt.Sprintf("%s already exists", p),
				Status:   http.StatusBadRequest,
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", p, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(local), ".upload-*")
	if err != nil {
		return fmt.Errorf("upload %s: %w", p, err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("upload %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("upload %s: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("upload %s: %w", p, err)
	}
	return nil
}

func (c *fsClient) EnsureDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	local, err := c.filePath(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(local, 0o755); err != nil {
		return fmt.Errorf("mkdirs %s: %w", p, err)
	}
	return nil
}

func (c *fsClient) readJob(file string) (*workflow.APIJob, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	job, err := workflow.DecodeJob(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(file), err)
	}
	return job, nil
}

func (c *fsClient) filePath(p string) (string, error) {
	if err := validateWorkspacePath(p); err != nil {
		return "", err
	}
	return filepath.Join(c.baseDir, "files", filepath.FromSlash(strings.TrimPrefix(p, "/"))), nil
}

func validateWorkspacePath(p string) error {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		return fmt.Errorf("workspace path is empty")
	}
	if !strings.HasPrefix(trimmed, "/") {
		return fmt.Errorf("workspace path %q must be absolute", p)
	}
	if strings.Contains(trimmed, `\`) {
		return fmt.Errorf("workspace path %q must not contain backslashes", p)
	}
	if path.Clean(trimmed) != trimmed {
		return fmt.Errorf("workspace path %q is invalid", p)
	}
	return nil
}
