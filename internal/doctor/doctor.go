// Package doctor validates dabops configuration and, optionally, the
// workspace connection.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mattjoyce/dabops/internal/config"
	"github.com/mattjoyce/dabops/internal/workspace"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid      bool            `json:"valid"`
	Errors     []Issue         `json:"errors,omitempty"`
	Warnings   []Issue         `json:"warnings,omitempty"`
	Connection *workspace.Info `json:"connection,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates configuration and, when given a client, tests the
// connection.
type Doctor struct {
	cfg    *config.Config
	client workspace.Client
}

// New creates a Doctor. client may be nil to skip the connection test.
func New(cfg *config.Config, client workspace.Client) *Doctor {
	return &Doctor{cfg: cfg, client: client}
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Validate runs all checks and returns a result.
func (d *Doctor) Validate(ctx context.Context) *Result {
	r := &Result{Valid: true}

	d.validateConfig(r)
	d.validateLocalDir(r)
	d.warnOutputDir(r)
	d.warnCache(r)
	d.warnState(r)
	d.warnPlaceholders(r)
	if d.client != nil {
		d.testConnection(ctx, r)
	}

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateConfig reports each config.Validate problem as its own issue.
func (d *Doctor) validateConfig(r *Result) {
	err := config.Validate(d.cfg)
	if err == nil {
		return
	}
	for _, msg := range strings.Split(err.Error(), "; ") {
		field, _, _ := strings.Cut(msg, " ")
		d.addError(r, "config", field, msg)
	}
}

func (d *Doctor) validateLocalDir(r *Result) {
	dir := d.cfg.Workspace.LocalDir
	if dir == "" {
		return
	}
	info, err := os.Stat(dir)
	switch {
	case err != nil:
		d.addError(r, "workspace", "workspace.local_dir", fmt.Sprintf("local workspace %q is not accessible: %v", dir, err))
	case !info.IsDir():
		d.addError(r, "workspace", "workspace.local_dir", fmt.Sprintf("local workspace %q is not a directory", dir))
	}
	if d.cfg.Workspace.Host != "" {
		d.addWarning(r, "workspace", "workspace.host", "workspace.local_dir is set; workspace.host is ignored")
	}
}

func (d *Doctor) warnOutputDir(r *Result) {
	dir := d.cfg.Bundle.OutputDir
	if dir != "" && !strings.HasPrefix(dir, "/Workspace") {
		d.addWarning(r, "bundle", "bundle.output_dir",
			fmt.Sprintf("output_dir %q will be placed under /Workspace", dir))
	}
	if dir != "" && !strings.Contains(dir, "{user}") {
		d.addWarning(r, "bundle", "bundle.output_dir", "output_dir has no {user} placeholder; all users share one folder")
	}
}

func (d *Doctor) warnCache(r *Result) {
	if d.cfg.Cache.Enabled && d.cfg.Cache.TTL == 0 {
		d.addWarning(r, "cache", "cache.ttl", "cache enabled with a zero ttl; every listing reaches the workspace")
	}
}

func (d *Doctor) warnState(r *Result) {
	if d.cfg.State.Path == "" {
		d.addWarning(r, "state", "state.path", "state.path is empty; generation history will not be persisted")
		if d.cfg.State.Retention > 0 {
			d.addWarning(r, "state", "state.retention", "state.retention has no effect without state.path")
		}
	}
}

func (d *Doctor) warnPlaceholders(r *Result) {
	for field, val := range map[string]string{
		"workspace.host":        d.cfg.Workspace.Host,
		"bundle.git_origin_url": d.cfg.Bundle.GitOriginURL,
		"bundle.git_branch":     d.cfg.Bundle.GitBranch,
	} {
		if m := placeholderPattern.FindStringSubmatch(val); m != nil {
			d.addWarning(r, "env_vars", field, fmt.Sprintf("environment variable ${%s} not set", m[1]))
		}
	}
}

func (d *Doctor) testConnection(ctx context.Context, r *Result) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	info, err := d.client.Info(ctx)
	if err != nil {
		d.addError(r, "connection", "", workspace.UserMessage(err))
		return
	}
	r.Connection = &info
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	switch {
	case r.Valid && len(r.Warnings) == 0:
		b.WriteString("Configuration valid.\n")
	case r.Valid:
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	default:
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}
	if c := r.Connection; c != nil {
		fmt.Fprintf(&b, "Connected to %s as %s (%s)\n", c.Host, c.User, c.AuthType)
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
