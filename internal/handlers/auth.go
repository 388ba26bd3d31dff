package handlers

import (
	"net/http"

	"trackify/internal/log"
	"trackify/internal/service"
)

type registerRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type meResponse struct {
	Phone string `json:"phone"`
}

// Register creates an account and logs it in.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	s, err := h.auth.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.replaceSession(w, r, s.Token)
	h.setSessionCookie(w, s)
	log.FromContext(r.Context()).WithComponent(log.ComponentAuth).
		Info("User registered", log.FieldUserID, s.UserID)
	writeJSON(w, http.StatusOK, messageResponse{Message: "User registered"})
}

// Login checks credentials and starts a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	s, err := h.auth.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.replaceSession(w, r, s.Token)
	h.setSessionCookie(w, s)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Login successful"})
}

// replaceSession ends the session the request arrived with, if it is not
// the one just started.
func (h *Handlers) replaceSession(w http.ResponseWriter, r *http.Request, newToken string) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" || cookie.Value == newToken {
		return
	}
	if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentSession).
			Warn("Failed to end previous session", log.FieldError, err)
	}
}

// Logout ends the current session. It always succeeds.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentSession).
				Error("Failed to delete session", log.FieldError, err)
		}
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

// Me returns the phone number of the caller.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	writeJSON(w, http.StatusOK, meResponse{Phone: user.Phone})
}
