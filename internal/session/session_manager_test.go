package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"todolist/db"
	"todolist/internal/eventlog"
	"todolist/internal/session"
	"todolist/internal/testutils"
	"todolist/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	manager *session.Manager
	factory *db.RepositoryFactory
	alice   *models.User
}

func setup(t *testing.T) *fixture {
	factory := testutils.SetupTestRepositoryFactory(t)
	users := factory.NewUserRepository()
	events := eventlog.NewEventLogService(factory.NewEventLogRepository())

	return &fixture{
		manager: session.NewManager(testutils.GetTestConfig(), factory.NewSessionRepository(), users, events),
		factory: factory,
		alice:   testutils.CreateTestUser(t, users, "alice"),
	}
}

// login creates a session and returns a follow-up request carrying its cookie
func (f *fixture) login(t *testing.T, user *models.User) (*http.Request, string) {
	rec := httptest.NewRecorder()
	token, err := f.manager.Create(rec, httptest.NewRequest(http.MethodPost, "/login", nil), user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	return withCookies(httptest.NewRequest(http.MethodGet, "/todos", nil), rec), token
}

func withCookies(req *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	for _, cookie := range rec.Result().Cookies() {
		req.AddCookie(cookie)
	}
	return req
}

func TestManager_CreateAndResolve(t *testing.T) {
	f := setup(t)

	req, _ := f.login(t, f.alice)
	identity, ok, err := f.manager.Resolve(req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f.alice.ID, identity.ID)
	assert.Equal(t, "alice", identity.Username)
}

func TestManager_CookieAttributes(t *testing.T) {
	f := setup(t)

	rec := httptest.NewRecorder()
	_, err := f.manager.Create(rec, httptest.NewRequest(http.MethodPost, "/login", nil), f.alice)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, "/", cookies[0].Path)
}

func TestManager_TokensAreUnique(t *testing.T) {
	f := setup(t)

	_, first := f.login(t, f.alice)
	_, second := f.login(t, f.alice)
	assert.NotEqual(t, first, second)
}

func TestManager_ResolveAnonymous(t *testing.T) {
	f := setup(t)

	t.Run("NoCookie", func(t *testing.T) {
		_, ok, err := f.manager.Resolve(httptest.NewRequest(http.MethodGet, "/todos", nil))
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("TamperedCookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/todos", nil)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "forged-value"})

		_, ok, err := f.manager.Resolve(req)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("CookieFromOtherSecret", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		cfg.SessionSecret = []byte("a_completely_different_secret_key_value")
		other := session.NewManager(cfg, f.factory.NewSessionRepository(), f.factory.NewUserRepository(), nil)

		rec := httptest.NewRecorder()
		_, err := other.Create(rec, httptest.NewRequest(http.MethodPost, "/login", nil), f.alice)
		require.NoError(t, err)

		_, ok, err := f.manager.Resolve(withCookies(httptest.NewRequest(http.MethodGet, "/", nil), rec))
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestManager_Destroy(t *testing.T) {
	f := setup(t)

	req, token := f.login(t, f.alice)

	rec := httptest.NewRecorder()
	f.manager.Destroy(rec, req)

	// The binding is gone, so replaying the old cookie is anonymous
	_, ok, err := f.manager.Resolve(req)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.factory.NewSessionRepository().FindByID(context.Background(), token)
	assert.ErrorIs(t, err, db.ErrNotFound)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].MaxAge < 0)

	t.Run("Idempotent", func(t *testing.T) {
		assert.NotPanics(t, func() {
			f.manager.Destroy(httptest.NewRecorder(), req)
			f.manager.Destroy(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/logout", nil))
		})
	})

	t.Run("RecordsLogout", func(t *testing.T) {
		logs, err := f.factory.NewEventLogRepository().FindLatestByUsername(context.Background(), "alice", 1)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, models.UserLoggedOut, logs[0].Type)
	})
}

func TestManager_RecreateRevokesPreviousBinding(t *testing.T) {
	f := setup(t)
	bob := testutils.CreateTestUser(t, f.factory.NewUserRepository(), "bob")

	req, aliceToken := f.login(t, f.alice)

	// Logging in as bob from the same client replaces alice's binding
	rec := httptest.NewRecorder()
	_, err := f.manager.Create(rec, req, bob)
	require.NoError(t, err)

	_, err = f.factory.NewSessionRepository().FindByID(context.Background(), aliceToken)
	assert.ErrorIs(t, err, db.ErrNotFound)

	identity, ok, err := f.manager.Resolve(withCookies(httptest.NewRequest(http.MethodGet, "/todos", nil), rec))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bob", identity.Username)
}

func TestManager_ResolveStaleBinding(t *testing.T) {
	f := setup(t)
	ghost := &models.User{ID: "deleted-user", Username: "ghost"}

	req, token := f.login(t, ghost)

	_, ok, err := f.manager.Resolve(req)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.factory.NewSessionRepository().FindByID(context.Background(), token)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestIdentityFromContext(t *testing.T) {
	_, ok := session.IdentityFromContext(context.Background())
	assert.False(t, ok)

	_, ok = session.IdentityFromContext(session.WithIdentity(context.Background(), models.Identity{}))
	assert.False(t, ok)

	identity := models.Identity{ID: "1", Username: "alice"}
	got, ok := session.IdentityFromContext(session.WithIdentity(context.Background(), identity))
	assert.True(t, ok)
	assert.Equal(t, identity, got)
}
