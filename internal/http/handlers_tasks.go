package http

import (
	"net/http"

	"household/internal/services"
)

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Recurring   *bool   `json:"recurring"`
	Tag         *string `json:"tag"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Recurring   *bool   `json:"recurring"`
	Tag         *string `json:"tag"`
}

// handleListTasks lists the caller's tasks for one day, today by default.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	day, err := parseDayParam(query, "day")
	if err != nil {
		writeError(w, r, err)
		return
	}

	tasks, err := s.tasks.List(r.Context(), callerID(r), services.TaskQuery{
		Tag:    sanitizeInput(query.Get("tag")),
		Search: sanitizeInput(query.Get("search")),
		Day:    day,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	task, err := s.tasks.Create(r.Context(), callerID(r), services.NewTask{
		Title:       sanitizeInput(req.Title),
		Description: sanitizePtr(req.Description),
		Tag:         sanitizePtr(req.Tag),
		Recurring:   req.Recurring != nil && *req.Recurring,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	task, err := s.tasks.Update(r.Context(), callerID(r), idParam(r), services.TaskPatch{
		Title:       sanitizePtr(req.Title),
		Description: sanitizePtr(req.Description),
		Tag:         sanitizePtr(req.Tag),
		Recurring:   req.Recurring,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleMarkTaskDone(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.MarkDone(r.Context(), callerID(r), idParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Delete(r.Context(), callerID(r), idParam(r)); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleRenewRecurring(w http.ResponseWriter, r *http.Request) {
	result, err := s.tasks.Renew(r.Context(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
