package http

import (
	"net/http"
	"time"

	"household/internal/insight"
	"household/internal/report"
)

type financialInsightRequest struct {
	Resumo string `json:"resumo"`
}

type productivityInsightRequest struct {
	Produtividade []report.DayProductivity `json:"produtividade"`
	Categorias    []report.TagCount        `json:"categorias"`
}

// insightGoal and insightTask accept the goal and task objects the
// dashboard already holds, so every member of those resources is allowed.
type insightGoal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	Responsible *string    `json:"responsible"`
	Deadline    dateValue  `json:"deadline"`
	Completed   bool       `json:"completed"`
	UserID      string     `json:"userId"`
	CreatedAt   *time.Time `json:"createdAt"`
}

type insightTask struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Tag         *string    `json:"tag"`
	Recurring   bool       `json:"recurring"`
	UserID      string     `json:"userId"`
	CreatedAt   *time.Time `json:"createdAt"`
}

type completeInsightRequest struct {
	Metas            []insightGoal `json:"metas"`
	RotinaDiaria     []insightTask `json:"rotinaDiaria"`
	ResumoFinanceiro string        `json:"resumoFinanceiro"`
}

func (req completeInsightRequest) lines() ([]insight.GoalLine, []insight.RoutineItem) {
	goals := make([]insight.GoalLine, 0, len(req.Metas))
	for _, g := range req.Metas {
		goals = append(goals, insight.GoalLine{
			Title:       sanitizeInput(g.Title),
			Description: sanitizePtr(g.Description),
			Deadline:    g.Deadline.Time,
			Responsible: sanitizePtr(g.Responsible),
			Completed:   g.Completed,
		})
	}
	routine := make([]insight.RoutineItem, 0, len(req.RotinaDiaria))
	for _, t := range req.RotinaDiaria {
		routine = append(routine, insight.RoutineItem{
			Title:  sanitizeInput(t.Title),
			Status: sanitizeInput(t.Status),
		})
	}
	return goals, routine
}

type insightResponse struct {
	Insight string `json:"insight"`
}

// Insight handlers always answer 200: generation failures degrade to the
// fallback text inside the insight service.

func (s *Server) handleFinancialInsight(w http.ResponseWriter, r *http.Request) {
	var req financialInsightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insightResponse{Insight: s.insights.Financial(r.Context(), req.Resumo)})
}

func (s *Server) handleProductivityInsight(w http.ResponseWriter, r *http.Request) {
	var req productivityInsightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insightResponse{
		Insight: s.insights.Productivity(r.Context(), req.Produtividade, req.Categorias),
	})
}

func (s *Server) handleCompleteInsight(w http.ResponseWriter, r *http.Request) {
	var req completeInsightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	goals, routine := req.lines()
	writeJSON(w, http.StatusOK, insightResponse{
		Insight: s.insights.Complete(r.Context(), goals, routine, req.ResumoFinanceiro),
	})
}
