package http

import (
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"pocketops/internal/core"
	"pocketops/internal/log"
	"pocketops/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.ListTransactions(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Data(txs).Write(w)
}

func (s *Server) saveTransaction(w http.ResponseWriter, r *http.Request, id string) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		bodyError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	in.ID = id

	tx, err := s.ledger.SaveTransaction(r.Context(), in)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
		atomic.AddInt64(&s.appMetrics.transactionsTotal, 1)
		s.sl.LogTransactionCreated(r.Context(), tx.ID, string(tx.Type), tx.Category, tx.AmountCents)
	}
	NewJSONResponse().Status(status).Data(tx).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	s.saveTransaction(w, r, "")
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	s.saveTransaction(w, r, chi.URLParam(r, "id"))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.Categories(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(cats).Write(w)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		bodyError(w, err)
		return
	}
	cat, err := s.ledger.AddCategory(r.Context(), sanitizeInput(req.Name), sanitizeInput(req.Emoji))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(cat).Write(w)
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		bodyError(w, err)
		return
	}
	cat, err := s.ledger.RenameCategory(r.Context(), chi.URLParam(r, "key"), sanitizeInput(req.Name), sanitizeInput(req.Emoji))
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(cat).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	remap, err := s.ledger.DeleteCategory(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Data(map[string]string{"remappedTo": remap}).Write(w)
}

func (s *Server) handleCategoryHint(w http.ResponseWriter, r *http.Request) {
	hint, err := s.ledger.CategoryHint(r.Context(), sanitizeInput(r.URL.Query().Get("merchant")))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(map[string]string{"category": hint}).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.ledger.ListBudgets(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	NewJSONResponse().Data(budgets).Write(w)
}

func (s *Server) handleSaveBudgets(w http.ResponseWriter, r *http.Request) {
	var budgets []core.Budget
	if err := decodeJSON(w, r, &budgets); err != nil {
		bodyError(w, err)
		return
	}
	if err := s.ledger.SaveBudgets(r.Context(), budgets); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	s.handleListBudgets(w, r)
}

func (s *Server) handleSuggestBudgets(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.reports.Suggestions(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(suggestions).Write(w)
}

func (s *Server) handlePaySchedule(w http.ResponseWriter, r *http.Request) {
	var in services.PayScheduleInput
	if err := decodeJSON(w, r, &in); err != nil {
		bodyError(w, err)
		return
	}
	st, err := s.ledger.UpdatePaySchedule(r.Context(), in)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(st).Write(w)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.ledger.ListBills(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if bills == nil {
		bills = []core.Bill{}
	}
	NewJSONResponse().Data(bills).Write(w)
}

func (s *Server) handleSaveBill(w http.ResponseWriter, r *http.Request) {
	var b core.Bill
	if err := decodeJSON(w, r, &b); err != nil {
		bodyError(w, err)
		return
	}
	b.Name = sanitizeInput(b.Name)
	created := b.ID == ""
	bill, err := s.ledger.SaveBill(r.Context(), b)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	NewJSONResponse().Status(status).Data(bill).Write(w)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteBill(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleMarkSubscription(w http.ResponseWriter, r *http.Request) {
	bill, err := s.ledger.MarkAsSubscription(r.Context(), chi.URLParam(r, "merchantKey"))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(bill).Write(w)
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var in services.OnboardingInput
	if err := decodeJSON(w, r, &in); err != nil {
		bodyError(w, err)
		return
	}
	st, err := s.ledger.CompleteOnboarding(r.Context(), in)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Data(st).Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Reset(r.Context()); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
