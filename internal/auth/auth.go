// Package auth authenticates API bearer tokens and checks their scopes.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// Scopes understood by the API. A ":rw" scope implies its ":ro" form.
const (
	ScopeAll           = "*"
	ScopeWorkflowsRead = "workflows:ro"
	ScopeBundlesRead   = "bundles:ro"
	ScopeBundlesWrite  = "bundles:rw"
	ScopeHistoryRead   = "history:ro"
	ScopeEventsRead    = "events:ro"
)

// Token is a configured bearer token limited to Scopes.
type Token struct {
	Token  string
	Scopes []string
}

// Principal is the authenticated caller.
type Principal struct {
	// Name identifies the matched credential in logs without revealing it.
	Name   string
	Scopes map[string]struct{}
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errors.New("invalid Authorization header format")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("missing API key")
	}
	return token, nil
}

func constantTimeEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Authenticate matches presented against the admin key, which carries every
// scope, then against the scoped tokens in order.
func Authenticate(presented, adminKey string, tokens []Token) (Principal, bool) {
	if constantTimeEqual(presented, adminKey) {
		return Principal{Name: "api_key", Scopes: map[string]struct{}{ScopeAll: {}}}, true
	}
	for i, t := range tokens {
		if constantTimeEqual(presented, t.Token) {
			return Principal{Name: "token[" + strconv.Itoa(i) + "]", Scopes: normalizeScopes(t.Scopes)}, true
		}
	}
	return Principal{}, false
}

func normalizeScopes(scopes []string) map[string]struct{} {
	out := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out[s] = struct{}{}
		if resource, ok := strings.CutSuffix(s, ":rw"); ok {
			out[resource+":ro"] = struct{}{}
		}
	}
	return out
}

// HasAnyScope reports whether p holds one of required, or the wildcard.
func HasAnyScope(p Principal, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	if _, ok := p.Scopes[ScopeAll]; ok {
		return true
	}
	for _, s := range required {
		if _, ok := p.Scopes[s]; ok {
			return true
		}
	}
	return false
}
