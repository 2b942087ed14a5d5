package http

import (
	"net/http"
)

// handleEvolution returns users and tasks created per day across the
// whole household.
func (s *Server) handleEvolution(w http.ResponseWriter, r *http.Request) {
	days, err := s.dashboard.Evolution(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleProductivity(w http.ResponseWriter, r *http.Request) {
	days, err := s.dashboard.Productivity(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleTasksByCategory(w http.ResponseWriter, r *http.Request) {
	tags, err := s.dashboard.TasksByCategory(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}
