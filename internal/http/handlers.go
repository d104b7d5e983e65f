package http

import (
	"net/http"
	"strings"

	"fintrack/internal/budget"
	"fintrack/internal/core"
)

type chartResponse struct {
	core.Series
	Summary core.SeriesSummary `json:"summary"`
}

type budgetResponse struct {
	Active    bool               `json:"active"`
	Status    *core.BudgetStatus `json:"status,omitempty"`
	Countdown string             `json:"countdown,omitempty"`
}

type reconcileResponse struct {
	Repaired []budget.Drift `json:"repaired"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Overview())
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("period"))
	if raw == "" {
		raw = string(core.Daily)
	}
	period, err := core.ParsePeriod(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	series, err := s.svc.Series(period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chartResponse{Series: series, Summary: series.Summary()})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs := s.svc.Transactions()
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.svc.AddTransactionInput(r.Context(), sanitizeTransaction(in))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.svc.DeleteTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	st, ok := s.svc.BudgetStatus()
	if !ok {
		writeJSON(w, http.StatusOK, budgetResponse{})
		return
	}
	countdown, _ := s.svc.Countdown()
	writeJSON(w, http.StatusOK, budgetResponse{Active: true, Status: &st, Countdown: countdown})
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var draft core.BudgetDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := s.svc.CreatePlanFromDraft(r.Context(), sanitizeDraft(draft))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleResetBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ResetBudget(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	drifts, err := s.svc.Reconcile(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if drifts == nil {
		drifts = []budget.Drift{}
	}
	writeJSON(w, http.StatusOK, reconcileResponse{Repaired: drifts})
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := s.svc.Draft(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if draft == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var draft core.BudgetDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.SaveDraft(r.Context(), sanitizeDraft(draft)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
