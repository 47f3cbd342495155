package workspace

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mattjoyce/dabops/internal/workflow"
)

const (
	pathCurrentUser = "/api/2.0/preview/scim/v2/Me"
	pathJobsList    = "/api/2.1/jobs/list"
	pathJobsGet     = "/api/2.1/jobs/get"
	pathRunsList    = "/api/2.1/jobs/runs/list"
	pathGetStatus   = "/api/2.0/workspace/get-status"
	pathImport      = "/api/2.0/workspace/import"
	pathMkdirs      = "/api/2.0/workspace/mkdirs"

	jobsPageSize = 25
)

// RESTConfig configures a RESTClient.
type RESTConfig struct {
	Host  string
	Token string
	// Timeout bounds each HTTP request (default 30s).
	Timeout time.Duration
	// RequestsPerSecond paces outgoing calls (default 10).
	RequestsPerSecond float64
	// Transport overrides the HTTP transport, for tests.
	Transport http.RoundTripper
}

// RESTClient talks to the Jobs 2.1 and Workspace 2.0 REST APIs with a
// personal access token.
type RESTClient struct {
	host    string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger

	mu   sync.Mutex
	user string
}

var _ Client = (*RESTClient)(nil)

// NewRESTClient validates cfg and returns a client. No request is made.
func NewRESTClient(cfg RESTConfig, logger *slog.Logger) (*RESTClient, error) {
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		return nil, fmt.Errorf("%w: workspace host is empty", ErrAuthentication)
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("%w: workspace token is empty", ErrAuthentication)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RESTClient{
		host:    host,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  logger,
	}, nil
}

type apiError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Detail    string `json:"detail"`
}

func (c *RESTClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.host + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("workspace request", "method", method, "path", path, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		_ = json.Unmarshal(data, &ae)
		msg := ae.Message
		if msg == "" {
			msg = ae.Detail
		}
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return classify(resp.StatusCode, ae.ErrorCode, msg)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// CurrentUser returns the authenticated user name. The result is memoized.
func (c *RESTClient) CurrentUser(ctx context.Context) (string, error) {
	c.mu.Lock()
	user := c.user
	c.mu.Unlock()
	if user != "" {
		return user, nil
	}

	var me struct {
		UserName string `json:"userName"`
	}
	if err := c.do(ctx, http.MethodGet, pathCurrentUser, nil, nil, &me); err != nil {
		return "", err
	}
	if me.UserName == "" {
		return "", fmt.Errorf("%w: current user has no user name", ErrAuthentication)
	}

	c.mu.Lock()
	c.user = me.UserName
	c.mu.Unlock()
	return me.UserName, nil
}

// Info returns the host and user of this connection.
func (c *RESTClient) Info(ctx context.Context) (Info, error) {
	user, err := c.CurrentUser(ctx)
	if err != nil {
		return Info{}, err
	}
	return Info{Host: c.host, User: user, AuthType: "pat"}, nil
}

// ListWorkflows pages through jobs/list.
func (c *RESTClient) ListWorkflows(ctx context.Context, userOnly bool) ([]workflow.Summary, error) {
	var user string
	if userOnly {
		u, err := c.CurrentUser(ctx)
		if err != nil {
			return nil, err
		}
		user = u
	}

	var out []workflow.Summary
	token := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(jobsPageSize))
		if token != "" {
			q.Set("page_token", token)
		}
		var page struct {
			Jobs          []workflow.APIJob `json:"jobs"`
			HasMore       bool              `json:"has_more"`
			NextPageToken string            `json:"next_page_token"`
		}
		if err := c.do(ctx, http.MethodGet, pathJobsList, q, nil, &page); err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		for i := range page.Jobs {
			job := &page.Jobs[i]
			if userOnly && job.CreatorUserName != user {
				continue
			}
			out = append(out, job.Summary())
		}
		if !page.HasMore || page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	c.logger.Info("retrieved workflows", "count", len(out), "user_only", userOnly)
	return out, nil
}

// GetWorkflowDetail fetches a job and its most recent runs. A failed runs
// listing is logged and yields a detail without runs.
func (c *RESTClient) GetWorkflowDetail(ctx context.Context, jobID int64) (*workflow.Detail, error) {
	q := url.Values{}
	q.Set("job_id", strconv.FormatInt(jobID, 10))

	var job workflow.APIJob
	if err := c.do(ctx, http.MethodGet, pathJobsGet, q, nil, &job); err != nil {
		return nil, fmt.Errorf("get job %d: %w", jobID, err)
	}

	rq := url.Values{}
	rq.Set("job_id", strconv.FormatInt(jobID, 10))
	rq.Set("limit", strconv.Itoa(workflow.MaxRecentRuns))
	var runs struct {
		Runs []workflow.APIRun `json:"runs"`
	}
	if err := c.do(ctx, http.MethodGet, pathRunsList, rq, nil, &runs); err != nil {
		c.logger.Warn("failed to list recent runs", "job_id", jobID, "error", err)
		runs.Runs = nil
	}
	return job.Detail(runs.Runs), nil
}

// FileExists calls get-status; a not-found response means false.
func (c *RESTClient) FileExists(ctx context.Context, path string) (bool, error) {
	q := url.Values{}
	q.Set("path", path)
	err := c.do(ctx, http.MethodGet, pathGetStatus, q, nil, nil)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

// UploadFile imports content at path in AUTO format.
func (c *RESTClient) UploadFile(ctx context.Context, path string, content []byte, overwrite bool) error {
	body := map[string]any{
		"path":      path,
		"content":   base64.StdEncoding.EncodeToString(content),
		"format":    "AUTO",
		"overwrite": overwrite,
	}
	if err := c.do(ctx, http.MethodPost, pathImport, nil, body, nil); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	c.logger.Info("uploaded file", "path", path, "bytes", len(content))
	return nil
}

// EnsureDirectory calls mkdirs, which creates parents and succeeds when the
// directory already exists.
func (c *RESTClient) EnsureDirectory(ctx context.Context, path string) error {
	if err := c.do(ctx, http.MethodPost, pathMkdirs, nil, map[string]string{"path": path}, nil); err != nil {
		return fmt.Errorf("mkdirs %s: %w", path, err)
	}
	return nil
}
