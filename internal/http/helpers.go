package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"household/internal/auth"
)

// callerID returns the authenticated user. Routes behind RequireAuth
// always have one; an empty result means the route was mounted wrongly.
func callerID(r *http.Request) string {
	p, _ := auth.PrincipalFrom(r.Context())
	return p.UserID
}

func idParam(r *http.Request) string {
	return chi.URLParam(r, "id")
}
