package http

import (
	"net/http"
	"strings"
	"time"

	"household/internal/core"
	"household/internal/services"
)

type createTransactionRequest struct {
	Title       string     `json:"title"`
	Amount      core.Money `json:"amount"`
	Type        string     `json:"type"`
	Category    string     `json:"category"`
	Date        dateValue  `json:"date"`
	Description *string    `json:"description"`
	Responsavel *string    `json:"responsavel"`
}

type updateTransactionRequest struct {
	Title       *string     `json:"title"`
	Amount      *core.Money `json:"amount"`
	Type        *string     `json:"type"`
	Category    *string     `json:"category"`
	Date        dateValue   `json:"date"`
	Description *string     `json:"description"`
	Responsavel *string     `json:"responsavel"`
}

type fillResponsibleRequest struct {
	Responsavel string `json:"responsavel"`
}

func transactionType(s string) core.TransactionType {
	return core.TransactionType(strings.ToLower(sanitizeInput(s)))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseTransactionFilter(callerID(r), r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.transactions.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var date time.Time
	if req.Date.Time != nil {
		date = *req.Date.Time
	}
	tx, err := s.transactions.Create(r.Context(), callerID(r), services.NewTransaction{
		Title:       sanitizeInput(req.Title),
		Amount:      req.Amount,
		Type:        transactionType(req.Type),
		Category:    sanitizeInput(req.Category),
		Date:        date,
		Description: sanitizePtr(req.Description),
		Responsavel: sanitizePtr(req.Responsavel),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req updateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Date.Set && req.Date.Time == nil {
		writeError(w, r, &core.ValidationError{Field: "date", Err: core.ErrInvalidDate})
		return
	}

	patch := services.TransactionPatch{
		Title:       sanitizePtr(req.Title),
		Amount:      req.Amount,
		Category:    sanitizePtr(req.Category),
		Date:        req.Date.Time,
		Description: sanitizePtr(req.Description),
		Responsavel: sanitizePtr(req.Responsavel),
	}
	if req.Type != nil {
		typ := transactionType(*req.Type)
		patch.Type = &typ
	}

	tx, err := s.transactions.Update(r.Context(), callerID(r), idParam(r), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.transactions.Delete(r.Context(), callerID(r), idParam(r)); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleTransactionSummary aggregates the caller's transactions, honouring
// the same filters as the listing.
func (s *Server) handleTransactionSummary(w http.ResponseWriter, r *http.Request) {
	f, err := ParseTransactionFilter(callerID(r), r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.transactions.Summary(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleFillResponsible(w http.ResponseWriter, r *http.Request) {
	var req fillResponsibleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.transactions.FillResponsavel(r.Context(), callerID(r), sanitizeInput(req.Responsavel))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}
