// Package auth provides the HTTP middleware that turns a bearer token into
// an auth.Principal on the request context.
package auth

import (
	"net/http"
	"strings"

	"household/internal/auth"
)

// Verifier resolves a raw bearer token.
type Verifier interface {
	Verify(token string) (auth.Principal, error)
}

// RequireAuth rejects requests without a valid bearer token by calling
// onFail with the reason.
func RequireAuth(v Verifier, onFail func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				onFail(w, r, err)
				return
			}
			p, err := v.Verify(token)
			if err != nil {
				onFail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", auth.ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", auth.ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}
