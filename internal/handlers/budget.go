package handlers

import "net/http"

type goalBody struct {
	Goal *float64 `json:"goal"`
}

type limitBody struct {
	Limit *float64 `json:"limit"`
}

// GetGoal returns the caller's goal, or null.
func (h *Handlers) GetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := h.budget.Goal(r.Context(), GetUserFromContext(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goalBody{Goal: goal})
}

// SetGoal upserts the caller's goal.
func (h *Handlers) SetGoal(w http.ResponseWriter, r *http.Request) {
	var req goalBody
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	stored, err := h.budget.SetGoal(r.Context(), GetUserFromContext(r).ID, req.Goal)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goalBody{Goal: &stored})
}

// GetLimit returns the caller's limit, or null.
func (h *Handlers) GetLimit(w http.ResponseWriter, r *http.Request) {
	limit, err := h.budget.Limit(r.Context(), GetUserFromContext(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limitBody{Limit: limit})
}

// SetLimit upserts the caller's limit.
func (h *Handlers) SetLimit(w http.ResponseWriter, r *http.Request) {
	var req limitBody
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	stored, err := h.budget.SetLimit(r.Context(), GetUserFromContext(r).ID, req.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limitBody{Limit: &stored})
}
