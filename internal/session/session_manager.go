package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"todolist/db"
	"todolist/internal/config"
	"todolist/internal/eventlog"
	"todolist/models"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	CookieName     = "todo-session"
	tokenKey       = "token"
	tokenBytes     = 32
	storageTimeout = 5 * time.Second
)

type contextKey struct{}

// WithIdentity attaches an identity resolved for the current request
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// IdentityFromContext returns the identity attached by WithIdentity
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(models.Identity)
	return identity, ok && !identity.IsZero()
}

// Manager issues, resolves and destroys login sessions. The cookie only
// carries the signed token; the binding to a user lives in Repository.
type Manager struct {
	Repository      db.SessionRepository
	Users           db.UserRepository
	EventLogService *eventlog.EventLogService
	store           *sessions.CookieStore
}

func NewManager(cfg *config.Config, repository db.SessionRepository, users db.UserRepository, eventLogService *eventlog.EventLogService) *Manager {
	store := sessions.NewCookieStore(cfg.SessionSecret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(cfg.SessionMaxAge)

	return &Manager{
		Repository:      repository,
		Users:           users,
		EventLogService: eventLogService,
		store:           store,
	}
}

func newToken() (string, error) {
	key := securecookie.GenerateRandomKey(tokenBytes)
	if key == nil {
		return "", errors.New("failed to read random bytes for session token")
	}
	return base64.RawURLEncoding.EncodeToString(key), nil
}

// Create binds a fresh token to user and writes it to the response cookie
func (m *Manager) Create(w http.ResponseWriter, r *http.Request, user *models.User) (string, error) {
	ctx, cancel := context.WithTimeout(r.Context(), storageTimeout)
	defer cancel()

	token, err := newToken()
	if err != nil {
		return "", err
	}

	// Drop any binding the client already carried
	if old, err := m.store.Get(r, CookieName); err == nil {
		if oldToken, ok := old.Values[tokenKey].(string); ok && oldToken != "" {
			if err := m.Repository.DeleteByID(ctx, oldToken); err != nil {
				log.Printf("Failed to delete previous session: %v", err)
			}
		}
	}

	err = m.Repository.Create(ctx, &models.Session{
		ID:       token,
		UserID:   user.ID,
		Username: user.Username,
	})
	if err != nil {
		return "", fmt.Errorf("error storing session: %w", err)
	}

	sess, _ := m.store.New(r, CookieName)
	sess.Values[tokenKey] = token
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("error saving session cookie: %w", err)
	}

	m.EventLogService.Record(ctx, models.UserLoggedIn, user.Username, nil)
	return token, nil
}

// Resolve returns the identity bound to the request's session cookie.
// Anonymous requests yield ok == false and a nil error; only storage
// failures are returned as errors.
func (m *Manager) Resolve(r *http.Request) (models.Identity, bool, error) {
	if identity, ok := IdentityFromContext(r.Context()); ok {
		return identity, true, nil
	}

	token := m.tokenFromRequest(r)
	if token == "" {
		return models.Identity{}, false, nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), storageTimeout)
	defer cancel()

	binding, err := m.Repository.FindByID(ctx, token)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Identity{}, false, nil
		}
		return models.Identity{}, false, fmt.Errorf("error resolving session: %w", err)
	}

	user, err := m.Users.FindByID(ctx, binding.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Stale binding: the user no longer exists
			if err := m.Repository.DeleteByID(ctx, token); err != nil {
				log.Printf("Failed to delete stale session: %v", err)
			}
			return models.Identity{}, false, nil
		}
		return models.Identity{}, false, fmt.Errorf("error resolving session user: %w", err)
	}

	return models.Identity{ID: user.ID, Username: user.Username}, true, nil
}

// Destroy removes the server-side binding and expires the cookie. It is
// idempotent and succeeds without a valid session.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storageTimeout)
	defer cancel()

	if token := m.tokenFromRequest(r); token != "" {
		if binding, err := m.Repository.FindByID(ctx, token); err == nil {
			m.EventLogService.Record(ctx, models.UserLoggedOut, binding.Username, nil)
		}
		if err := m.Repository.DeleteByID(ctx, token); err != nil {
			log.Printf("Failed to delete session: %v", err)
		}
	}

	sess, _ := m.store.New(r, CookieName)
	sess.Values = make(map[interface{}]interface{})
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		log.Printf("Failed to expire session cookie: %v", err)
	}
}

func (m *Manager) tokenFromRequest(r *http.Request) string {
	sess, err := m.store.Get(r, CookieName)
	if err != nil {
		// Missing or tampered cookie
		return ""
	}
	token, _ := sess.Values[tokenKey].(string)
	return token
}
