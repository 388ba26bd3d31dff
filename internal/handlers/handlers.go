package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"trackify/internal/charts"
	"trackify/internal/log"
	"trackify/internal/models"
	"trackify/internal/service"
	"trackify/internal/session"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// UserIDContextKey is the context key for the session's user id.
	UserIDContextKey contextKey = "user_id"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"

	maxBodyBytes = 1 << 20
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of Handlers.
type Deps struct {
	Auth         *service.Auth
	Expenses     *service.Expenses
	Budget       *service.Budget
	Profile      *service.Profile
	Charts       *charts.Generator
	Store        Pinger
	SecureCookie bool
	SessionTTL   time.Duration
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	auth         *service.Auth
	expenses     *service.Expenses
	budget       *service.Budget
	profile      *service.Profile
	charts       *charts.Generator
	store        Pinger
	secureCookie bool
	sessionTTL   time.Duration
	now          func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(d Deps) *Handlers {
	if d.SessionTTL <= 0 {
		d.SessionTTL = session.DefaultTTL
	}
	if d.Charts == nil {
		d.Charts = charts.NewGenerator(charts.DefaultSize)
	}
	return &Handlers{
		auth:         d.Auth,
		expenses:     d.Expenses,
		budget:       d.Budget,
		profile:      d.Profile,
		charts:       d.Charts,
		store:        d.Store,
		secureCookie: d.SecureCookie,
		sessionTTL:   d.SessionTTL,
		now:          time.Now,
	}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// GetUserIDFromContext returns the user id set by SessionMiddleware or
// AuthMiddleware.
func GetUserIDFromContext(r *http.Request) string {
	id, _ := r.Context().Value(UserIDContextKey).(string)
	return id
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// AuthMiddleware wraps handlers to require a valid session. Sessions have a
// fixed lifetime and are not renewed here.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: service.MsgNotAuthenticated})
			return
		}

		user, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrAuth) {
				h.clearSessionCookie(w)
			}
			h.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, UserIDContextKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionMiddleware requires a valid session but does not load its user,
// leaving a missing user for the handler to report.
func (h *Handlers) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: service.MsgNotAuthenticated})
			return
		}

		userID, err := h.auth.SessionUserID(r.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrAuth) {
				h.clearSessionCookie(w)
			}
			h.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, s models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to its status code. Unclassified errors
// are logged and reported as a generic 500.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(se, service.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(se, service.ErrConflict):
			status = http.StatusConflict
		case errors.Is(se, service.ErrAuth):
			status = http.StatusUnauthorized
		case errors.Is(se, service.ErrNotFound):
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: se.Message})
		return
	}

	log.FromContext(r.Context()).Error("Request failed",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldError, err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Server error"})
}

// decodeJSON reads a single JSON object into dst. Unknown fields, wrong
// types and trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &service.Error{Kind: service.ErrValidation, Message: service.MsgMissingFields}
		}
		return &service.Error{Kind: service.ErrValidation, Message: "Invalid request body: " + err.Error()}
	}
	if dec.More() {
		return &service.Error{Kind: service.ErrValidation, Message: "Invalid request body: unexpected data after JSON object"}
	}
	return nil
}
