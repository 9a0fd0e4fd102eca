package auth

import (
	"context"
	"net/http"
	"strings"
)

// Principal is the authenticated caller attached to a command context.
// The core never interprets claims; they travel opaquely from the edge.
type Principal struct {
	ID     string
	Claims map[string]string
}

type ctxKey int

const ctxKeyPrincipal ctxKey = iota

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(Principal)
	return p, ok
}

// PrincipalFromRequest reads the identity headers set by the edge proxy.
// An empty principal is returned when the request is unauthenticated.
func PrincipalFromRequest(r *http.Request) Principal {
	p := Principal{
		ID:     strings.TrimSpace(r.Header.Get("X-Customer-Id")),
		Claims: map[string]string{},
	}
	if role := strings.TrimSpace(r.Header.Get("X-Role")); role != "" {
		p.Claims["role"] = role
	}
	return p
}
