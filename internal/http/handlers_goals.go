package http

import (
	"net/http"

	"household/internal/services"
)

type createGoalRequest struct {
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Responsible *string   `json:"responsible"`
	Deadline    dateValue `json:"deadline"`
}

// updateGoalRequest treats "deadline": null as clearing the deadline.
type updateGoalRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Responsible *string   `json:"responsible"`
	Deadline    dateValue `json:"deadline"`
	Completed   *bool     `json:"completed"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	goals, err := s.goals.List(r.Context(), callerID(r), services.GoalQuery{
		Responsible: sanitizeInput(query.Get("responsible")),
		Search:      sanitizeInput(query.Get("search")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := s.goals.Create(r.Context(), callerID(r), services.NewGoal{
		Title:       sanitizeInput(req.Title),
		Description: sanitizePtr(req.Description),
		Category:    sanitizePtr(req.Category),
		Responsible: sanitizePtr(req.Responsible),
		Deadline:    req.Deadline.Time,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req updateGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := s.goals.Update(r.Context(), callerID(r), idParam(r), services.GoalPatch{
		Title:         sanitizePtr(req.Title),
		Description:   sanitizePtr(req.Description),
		Category:      sanitizePtr(req.Category),
		Responsible:   sanitizePtr(req.Responsible),
		Deadline:      req.Deadline.Time,
		ClearDeadline: req.Deadline.Set && req.Deadline.Time == nil,
		Completed:     req.Completed,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (s *Server) handleCompleteGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.goals.Complete(r.Context(), callerID(r), idParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.goals.Delete(r.Context(), callerID(r), idParam(r)); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleGoalSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.goals.Summary(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
