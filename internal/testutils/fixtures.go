package testutils

import (
	"context"
	"testing"
	"time"

	"todolist/db"
	"todolist/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// CreateTestUser stores a user whose password is "password-<username>"
func CreateTestUser(t *testing.T, repo db.UserRepository, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(PasswordFor(username)), bcrypt.MinCost)
	require.NoError(t, err)

	user, err := repo.Create(context.Background(), &models.User{
		Username:     username,
		PasswordHash: string(hash),
	})
	require.NoError(t, err)
	return user
}

func PasswordFor(username string) string {
	return "password-" + username
}

func CreateTestTodo(owner, text string) *models.Todo {
	return &models.Todo{
		OwnerUsername: owner,
		Text:          text,
		DueDate:       "2024-01-01",
		Status:        models.TodoStatusIncomplete,
		CreatedAt:     time.Now(),
	}
}
