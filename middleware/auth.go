package middleware

import (
	"log"
	"net/http"

	"todolist/internal/session"
	"todolist/models"
)

// Resolver resolves the identity bound to a request
type Resolver interface {
	Resolve(r *http.Request) (models.Identity, bool, error)
}

// ErrorHandler renders a response for a failed session lookup
type ErrorHandler func(w http.ResponseWriter, r *http.Request, status int, err error)

type Middleware struct {
	Sessions Resolver
	OnError  ErrorHandler
}

func NewMiddleware(sessions Resolver, onError ErrorHandler) *Middleware {
	return &Middleware{Sessions: sessions, OnError: onError}
}

// RequireSession resolves the caller before invoking next. Anonymous callers
// are sent to the login page; the resolved identity is attached to the
// request context for the rest of this request only.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok, err := m.Sessions.Resolve(r)
		if err != nil {
			if m.OnError != nil {
				m.OnError(w, r, http.StatusServiceUnavailable, err)
				return
			}
			log.Printf("Session lookup failed: %v", err)
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}

		if !ok {
			// For HTMX requests, return a redirect header instead of HTTP redirect
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/login")
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(session.WithIdentity(r.Context(), identity)))
	})
}
