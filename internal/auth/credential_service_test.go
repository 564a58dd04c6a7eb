package auth_test

import (
	"context"
	"strings"
	"testing"

	"todolist/db"
	"todolist/internal/auth"
	"todolist/internal/eventlog"
	"todolist/internal/testutils"
	"todolist/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newCredentialService(t *testing.T) (*auth.CredentialService, *db.RepositoryFactory) {
	factory := testutils.SetupTestRepositoryFactory(t)
	events := eventlog.NewEventLogService(factory.NewEventLogRepository())
	service := auth.NewCredentialService(factory.NewUserRepository(), events)
	service.Cost = bcrypt.MinCost
	return service, factory
}

func TestCredentialService_Register(t *testing.T) {
	service, factory := newCredentialService(t)
	ctx := context.Background()

	t.Run("StoresHashNotPassword", func(t *testing.T) {
		id, err := service.Register(ctx, "alice", "pw1")
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		user, err := factory.NewUserRepository().FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.NotEqual(t, "pw1", user.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw1")))
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		_, err := service.Register(ctx, "alice", "something-else")
		assert.ErrorIs(t, err, auth.ErrUsernameTaken)

		// The first password still works
		_, err = service.Verify(ctx, "alice", "pw1")
		assert.NoError(t, err)
	})

	t.Run("UsernamesAreCaseSensitive", func(t *testing.T) {
		_, err := service.Register(ctx, "Alice", "pw2")
		assert.NoError(t, err)
	})

	t.Run("RecordsEvent", func(t *testing.T) {
		logs, err := factory.NewEventLogRepository().FindLatestByUsername(ctx, "alice", 10)
		require.NoError(t, err)
		require.NotEmpty(t, logs)
		assert.Equal(t, models.UserRegistered, logs[len(logs)-1].Type)
	})

	invalid := []struct {
		name     string
		username string
		password string
		field    string
	}{
		{name: "EmptyUsername", username: "", password: "pw", field: "username"},
		{name: "EmptyPassword", username: "bob", password: "", field: "password"},
		{name: "LongUsername", username: strings.Repeat("u", 65), password: "pw", field: "username"},
		{name: "LongPassword", username: "bob", password: strings.Repeat("p", 73), field: "password"},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Register(ctx, tc.username, tc.password)
			var validationErr *models.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.field, validationErr.Field)
		})
	}
}

func TestCredentialService_Verify(t *testing.T) {
	service, factory := newCredentialService(t)
	ctx := context.Background()

	id, err := service.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	t.Run("Correct", func(t *testing.T) {
		user, err := service.Verify(ctx, "alice", "pw1")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("UnknownAndWrongAreIndistinguishable", func(t *testing.T) {
		_, wrongErr := service.Verify(ctx, "alice", "nope")
		_, unknownErr := service.Verify(ctx, "nobody", "pw1")

		assert.ErrorIs(t, wrongErr, auth.ErrInvalidCredentials)
		assert.ErrorIs(t, unknownErr, auth.ErrInvalidCredentials)
		assert.Equal(t, wrongErr.Error(), unknownErr.Error())
	})

	t.Run("EmptyInput", func(t *testing.T) {
		_, err := service.Verify(ctx, "", "pw1")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		_, err = service.Verify(ctx, "alice", "")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("CaseSensitiveUsername", func(t *testing.T) {
		_, err := service.Verify(ctx, "ALICE", "pw1")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("FailedAttemptIsRecorded", func(t *testing.T) {
		logs, err := factory.NewEventLogRepository().FindLatestByUsername(ctx, "alice", 10)
		require.NoError(t, err)

		found := false
		for _, entry := range logs {
			if entry.Type == models.LoginFailed {
				found = true
			}
		}
		assert.True(t, found, "expected a %s event", models.LoginFailed)
	})
}

func TestCredentialService_FindByID(t *testing.T) {
	service, _ := newCredentialService(t)
	ctx := context.Background()

	id, err := service.Register(ctx, "carol", "pw3")
	require.NoError(t, err)

	user, err := service.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)

	_, err = service.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestCredentialService_VerifyLegacyHash(t *testing.T) {
	service, factory := newCredentialService(t)
	users := factory.NewUserRepository()
	ctx := context.Background()

	// werkzeug default parameters, as written by the Flask deployment
	legacy := "pbkdf2:sha256:600000$abcdefghijklmnop$eb330040d68878ebeda4010821d5e481c1c486c0990fcec4033fb758bc322d7a"
	stored, err := users.Create(ctx, &models.User{Username: "alice", PasswordHash: legacy})
	require.NoError(t, err)

	t.Run("WrongPasswordKeepsHash", func(t *testing.T) {
		_, err := service.Verify(ctx, "alice", "pw2")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		user, err := users.FindByID(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, legacy, user.PasswordHash)
	})

	t.Run("CorrectPasswordUpgradesToBcrypt", func(t *testing.T) {
		user, err := service.Verify(ctx, "alice", "pw1")
		require.NoError(t, err)
		assert.Equal(t, stored.ID, user.ID)

		reloaded, err := users.FindByID(ctx, stored.ID)
		require.NoError(t, err)
		assert.False(t, auth.IsLegacyHash(reloaded.PasswordHash))
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(reloaded.PasswordHash), []byte("pw1")))
	})

	t.Run("UpgradedHashStillVerifies", func(t *testing.T) {
		_, err := service.Verify(ctx, "alice", "pw1")
		assert.NoError(t, err)
	})
}
