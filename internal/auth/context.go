// Package auth issues and verifies session tokens and carries the verified
// caller through request contexts.
package auth

import "context"

// Principal is the verified identity behind a request.
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type contextKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFrom returns the principal stored by the auth middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok && p.UserID != ""
}
