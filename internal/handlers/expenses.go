package handlers

import (
	"net/http"

	"trackify/internal/log"
	"trackify/internal/service"
)

type expenseRequest struct {
	Amount      *float64 `json:"amount"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Date        string   `json:"date"`
}

func (req expenseRequest) input() service.ExpenseInput {
	return service.ExpenseInput{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Type:        req.Type,
		Date:        req.Date,
	}
}

// ListExpenses returns every transaction of the caller.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	expenses, err := h.expenses.List(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// CreateExpense records a transaction for the caller.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user := GetUserFromContext(r)
	e, err := h.expenses.Create(r.Context(), user.ID, req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).WithComponent(log.ComponentExpense).
		Debug("Expense created", log.FieldUserID, user.ID, log.FieldExpenseID, e.ID)
	writeJSON(w, http.StatusOK, e)
}

// GetExpense returns one transaction of the caller.
func (h *Handlers) GetExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	e, err := h.expenses.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// UpdateExpense replaces amount, category, description and type.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user := GetUserFromContext(r)
	e, err := h.expenses.Update(r.Context(), user.ID, r.PathValue("id"), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteExpense removes a transaction of the caller. Unknown ids succeed.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	if err := h.expenses.Delete(r.Context(), user.ID, r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Deleted"})
}
