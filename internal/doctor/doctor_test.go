package doctor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/mattjoyce/dabops/internal/config"
	"github.com/mattjoyce/dabops/internal/workspace"
	"github.com/mattjoyce/dabops/internal/workspace/mocks"
)

func validConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Workspace.Host = "adb-1.azuredatabricks.net"
	cfg.Workspace.Token = "dapi123"
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()
	r := New(validConfig(), nil).Validate(context.Background())
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got: %v", r.Warnings)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Workspace.Host = ""
	cfg.Workspace.Token = ""
	r := New(cfg, nil).Validate(context.Background())
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "config", "workspace.host is required")
	assertHasError(t, r, "config", "workspace.token is required")
	if r.Errors[0].Field != "workspace.host" {
		t.Fatalf("expected field workspace.host, got %q", r.Errors[0].Field)
	}
}

func TestValidate_LocalDir(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Workspace.LocalDir = t.TempDir()
	r := New(cfg, nil).Validate(context.Background())
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
	assertHasWarning(t, r, "workspace", "workspace.host is ignored")

	cfg.Workspace.LocalDir = filepath.Join(t.TempDir(), "missing")
	r = New(cfg, nil).Validate(context.Background())
	assertHasError(t, r, "workspace", "not accessible")
}

func TestValidate_Warnings(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Bundle.OutputDir = "/Shared/bundles"
	cfg.Cache.TTL = 0
	cfg.State.Path = ""
	cfg.State.Retention = time.Hour
	cfg.Bundle.GitBranch = "${DABOPS_TEST_BRANCH_UNSET}"

	r := New(cfg, nil).Validate(context.Background())
	if !r.Valid {
		t.Fatalf("warnings must not invalidate: %v", r.Errors)
	}
	assertHasWarning(t, r, "bundle", "placed under /Workspace")
	assertHasWarning(t, r, "bundle", "no {user} placeholder")
	assertHasWarning(t, r, "cache", "zero ttl")
	assertHasWarning(t, r, "state", "not be persisted")
	assertHasWarning(t, r, "state", "no effect without state.path")
	assertHasWarning(t, r, "env_vars", "DABOPS_TEST_BRANCH_UNSET")
}

func TestValidate_Connection(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	info := workspace.Info{Host: "https://adb-1.azuredatabricks.net", User: "me@example.com", AuthType: "pat"}
	client.EXPECT().Info(gomock.Any()).Return(info, nil)

	r := New(validConfig(), client).Validate(context.Background())
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
	if r.Connection == nil || *r.Connection != info {
		t.Fatalf("unexpected connection: %+v", r.Connection)
	}
	if !strings.Contains(FormatHuman(r), "Connected to https://adb-1.azuredatabricks.net as me@example.com (pat)") {
		t.Fatalf("connection missing from report: %q", FormatHuman(r))
	}
}

func TestValidate_ConnectionFailure(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().Info(gomock.Any()).Return(workspace.Info{}, errors.Join(workspace.ErrAuthentication))

	r := New(validConfig(), client).Validate(context.Background())
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "connection", "Authentication failed")
}

func TestFormatHuman(t *testing.T) {
	t.Parallel()
	r := &Result{
		Valid:    false,
		Errors:   []Issue{{Category: "config", Field: "workspace.host", Message: "required"}},
		Warnings: []Issue{{Category: "cache", Message: "zero ttl"}},
	}
	out := FormatHuman(r)
	for _, want := range []string{
		"Configuration invalid (1 error(s), 1 warning(s))",
		"ERROR [config] workspace.host: required",
		"WARN  [cache] zero ttl",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if got := FormatHuman(&Result{Valid: true}); got != "Configuration valid.\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestFormatJSON(t *testing.T) {
	t.Parallel()
	out, err := FormatJSON(&Result{Valid: true, Connection: &workspace.Info{Host: "h"}})
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	if !strings.Contains(out, `"valid": true`) || !strings.Contains(out, `"host": "h"`) {
		t.Fatalf("unexpected JSON: %s", out)
	}
}

func assertHasError(t *testing.T, r *Result, category, substring string) {
	t.Helper()
	for _, e := range r.Errors {
		if e.Category == category && strings.Contains(e.Message, substring) {
			return
		}
	}
	t.Fatalf("expected error with category=%q containing %q, got: %v", category, substring, r.Errors)
}

func assertHasWarning(t *testing.T, r *Result, category, substring string) {
	t.Helper()
	for _, w := range r.Warnings {
		if w.Category == category && strings.Contains(w.Message, substring) {
			return
		}
	}
	t.Fatalf("expected warning with category=%q containing %q, got: %v", category, substring, r.Warnings)
}
