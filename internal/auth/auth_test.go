package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	req.Header.Set("Authorization", "Bearer test-key")
	key, err := BearerToken(req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if key != "test-key" {
		t.Fatalf("expected key %q, got %q", "test-key", key)
	}

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"empty":      "Bearer   ",
	} {
		req := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if _, err := BearerToken(req); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	tokens := []Token{
		{Token: "reader", Scopes: []string{ScopeWorkflowsRead, " "}},
		{Token: "writer", Scopes: []string{ScopeBundlesWrite}},
	}

	admin, ok := Authenticate("admin", "admin", tokens)
	if !ok || !HasAnyScope(admin, ScopeHistoryRead) {
		t.Fatalf("admin key: ok=%v principal=%+v, want wildcard", ok, admin)
	}

	reader, ok := Authenticate("reader", "admin", tokens)
	if !ok || reader.Name != "token[0]" {
		t.Fatalf("reader: ok=%v principal=%+v", ok, reader)
	}
	if !HasAnyScope(reader, ScopeWorkflowsRead) || HasAnyScope(reader, ScopeBundlesWrite) {
		t.Fatalf("reader scopes = %v", reader.Scopes)
	}
	if len(reader.Scopes) != 1 {
		t.Fatalf("blank scope kept: %v", reader.Scopes)
	}

	writer, ok := Authenticate("writer", "admin", tokens)
	if !ok || !HasAnyScope(writer, ScopeBundlesRead) {
		t.Fatalf("rw should imply ro: %v", writer.Scopes)
	}

	if _, ok := Authenticate("nope", "admin", tokens); ok {
		t.Fatal("unknown token authenticated")
	}
	if _, ok := Authenticate("", "", nil); ok {
		t.Fatal("empty key authenticated")
	}
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatal("principal found in empty context")
	}
	ctx := WithPrincipal(context.Background(), Principal{Name: "api_key"})
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.Name != "api_key" {
		t.Fatalf("PrincipalFromContext() = %+v, %v", p, ok)
	}
	if !HasAnyScope(p) {
		t.Fatal("no required scopes should pass")
	}
}
