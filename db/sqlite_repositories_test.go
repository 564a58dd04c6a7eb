package db_test

import (
	"context"
	"testing"
	"time"

	"todolist/db"
	"todolist/internal/testutils"
	"todolist/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteUserRepository(t *testing.T) {
	repo := db.NewSQLiteUserRepository(testutils.SetupTestDatabase(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.User{Username: "alice", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	t.Run("FindByID", func(t *testing.T) {
		found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", found.Username)
		assert.Equal(t, "hash", found.PasswordHash)
	})

	t.Run("FindByUsername_CaseSensitive", func(t *testing.T) {
		found, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)

		_, err = repo.FindByUsername(ctx, "Alice")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		_, err := repo.Create(ctx, &models.User{Username: "alice", PasswordHash: "other"})
		assert.ErrorIs(t, err, db.ErrDuplicate)
	})

	t.Run("MissingID", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "does-not-exist")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("UpdatePasswordHash", func(t *testing.T) {
		require.NoError(t, repo.UpdatePasswordHash(ctx, created.ID, "new-hash"))

		found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", found.PasswordHash)

		assert.ErrorIs(t, repo.UpdatePasswordHash(ctx, "does-not-exist", "x"), db.ErrNotFound)
	})
}

func TestSQLiteTodoRepository(t *testing.T) {
	repo := db.NewSQLiteTodoRepository(testutils.SetupTestDatabase(t))
	ctx := context.Background()

	t.Run("ListEmpty", func(t *testing.T) {
		todos, err := repo.FindAllByOwner(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, todos)
		assert.Empty(t, todos)
	})

	t.Run("InsertionOrder", func(t *testing.T) {
		base := time.Now()
		for i, text := range []string{"first", "second", "third"} {
			todo := testutils.CreateTestTodo("bob", text)
			todo.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
			_, err := repo.Create(ctx, todo)
			require.NoError(t, err)
		}
		_, err := repo.Create(ctx, testutils.CreateTestTodo("carol", "not bob's"))
		require.NoError(t, err)

		todos, err := repo.FindAllByOwner(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, todos, 3)
		assert.Equal(t, "first", todos[0].Text)
		assert.Equal(t, "second", todos[1].Text)
		assert.Equal(t, "third", todos[2].Text)
		for _, todo := range todos {
			assert.Equal(t, models.TodoStatusIncomplete, todo.Status)
			assert.Equal(t, "2024-01-01", todo.DueDate)
		}
	})

	t.Run("DefaultStatus", func(t *testing.T) {
		created, err := repo.Create(ctx, &models.Todo{OwnerUsername: "dave", Text: "x", DueDate: "2024-02-02"})
		require.NoError(t, err)
		assert.Equal(t, models.TodoStatusIncomplete, created.Status)
	})

	t.Run("UpdateStatusAndDelete", func(t *testing.T) {
		created, err := repo.Create(ctx, testutils.CreateTestTodo("erin", "buy milk"))
		require.NoError(t, err)

		require.NoError(t, repo.UpdateStatus(ctx, created.ID, models.TodoStatusComplete))
		found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TodoStatusComplete, found.Status)

		require.NoError(t, repo.DeleteByID(ctx, created.ID))
		_, err = repo.FindByID(ctx, created.ID)
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("MissingRecords", func(t *testing.T) {
		assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", models.TodoStatusComplete), db.ErrNotFound)
		assert.ErrorIs(t, repo.DeleteByID(ctx, "missing"), db.ErrNotFound)
	})
}

func TestSQLiteSessionRepository(t *testing.T) {
	repo := db.NewSQLiteSessionRepository(testutils.SetupTestDatabase(t))
	ctx := context.Background()

	session := &models.Session{ID: "token-1", UserID: "user-1", Username: "alice"}
	require.NoError(t, repo.Create(ctx, session))
	assert.ErrorIs(t, repo.Create(ctx, &models.Session{ID: "token-1", UserID: "user-2", Username: "bob"}), db.ErrDuplicate)

	found, err := repo.FindByID(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", found.UserID)
	assert.Equal(t, "alice", found.Username)

	require.NoError(t, repo.DeleteByID(ctx, "token-1"))
	_, err = repo.FindByID(ctx, "token-1")
	assert.ErrorIs(t, err, db.ErrNotFound)

	// Deleting twice is not an error
	assert.NoError(t, repo.DeleteByID(ctx, "token-1"))
}

func TestSQLiteEventLogRepository(t *testing.T) {
	repo := db.NewSQLiteEventLogRepository(testutils.SetupTestDatabase(t))
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 5; i++ {
		createdAt := base.Add(time.Duration(i) * time.Second)
		todoID := "todo-1"
		require.NoError(t, repo.Create(ctx, &models.EventLog{
			Type:        models.TodoCreated,
			Username:    "alice",
			Description: "event",
			TodoID:      &todoID,
			CreatedAt:   &createdAt,
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.EventLog{Type: models.UserLoggedIn, Username: "bob", Description: "other"}))

	logs, err := repo.FindLatestByUsername(ctx, "alice", 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, logs[0].CreatedAt.After(*logs[1].CreatedAt))
	require.NotNil(t, logs[0].TodoID)
	assert.Equal(t, "todo-1", *logs[0].TodoID)

	logs, err = repo.FindLatestByUsername(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].TodoID)
}

func TestRepositoryFactory_SQLite(t *testing.T) {
	factory := testutils.SetupTestRepositoryFactory(t)

	assert.IsType(t, &db.SQLiteUserRepository{}, factory.NewUserRepository())
	assert.IsType(t, &db.SQLiteTodoRepository{}, factory.NewTodoRepository())
	assert.IsType(t, &db.SQLiteSessionRepository{}, factory.NewSessionRepository())
	assert.IsType(t, &db.SQLiteEventLogRepository{}, factory.NewEventLogRepository())
}
