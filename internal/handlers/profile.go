package handlers

import (
	"net/http"

	"trackify/internal/service"
)

type profileRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password,omitempty"`
}

type profileResponse struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// GetProfile returns the caller's name and phone. It answers 404 when the
// session outlived its user.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.profile.Get(r.Context(), GetUserIDFromContext(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Name: u.Name, Phone: u.Phone})
}

// UpdateProfile changes name and phone, and the password when one is sent.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.profile.Update(r.Context(), GetUserIDFromContext(r), service.ProfileInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Name: u.Name, Phone: u.Phone})
}
