package db

import (
	"context"
	"database/sql"
	"errors"

	"todolist/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository defines the interface for user operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

// TodoRepository defines the interface for todo operations
type TodoRepository interface {
	Create(ctx context.Context, todo *models.Todo) (*models.Todo, error)
	FindByID(ctx context.Context, id string) (*models.Todo, error)
	FindAllByOwner(ctx context.Context, username string) ([]*models.Todo, error)
	UpdateStatus(ctx context.Context, id string, status models.TodoStatus) error
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository defines the interface for server-side session bindings
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

// EventLogRepository defines the interface for event log operations
type EventLogRepository interface {
	Create(ctx context.Context, eventLog *models.EventLog) error
	FindLatestByUsername(ctx context.Context, username string, limit int) ([]*models.EventLog, error)
}

// RepositoryFactory creates repositories based on the database type
type RepositoryFactory struct {
	SQLiteDB    *sql.DB
	MongoClient *mongo.Client
	DBName      string
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(sqliteDB *sql.DB, mongoClient *mongo.Client, dbName string) *RepositoryFactory {
	return &RepositoryFactory{
		SQLiteDB:    sqliteDB,
		MongoClient: mongoClient,
		DBName:      dbName,
	}
}

// NewUserRepository creates a new user repository
func (f *RepositoryFactory) NewUserRepository() UserRepository {
	if f.SQLiteDB != nil {
		return NewSQLiteUserRepository(f.SQLiteDB)
	}
	return NewMongoUserRepository(f.MongoClient, f.DBName, "users")
}

// NewTodoRepository creates a new todo repository
func (f *RepositoryFactory) NewTodoRepository() TodoRepository {
	if f.SQLiteDB != nil {
		return NewSQLiteTodoRepository(f.SQLiteDB)
	}
	return NewMongoTodoRepository(f.MongoClient, f.DBName, "todos")
}

// NewSessionRepository creates a new session repository
func (f *RepositoryFactory) NewSessionRepository() SessionRepository {
	if f.SQLiteDB != nil {
		return NewSQLiteSessionRepository(f.SQLiteDB)
	}
	return NewMongoSessionRepository(f.MongoClient, f.DBName, "sessions")
}

// NewEventLogRepository creates a new event log repository
func (f *RepositoryFactory) NewEventLogRepository() EventLogRepository {
	if f.SQLiteDB != nil {
		return NewSQLiteEventLogRepository(f.SQLiteDB)
	}
	return NewMongoEventLogRepository(f.MongoClient, f.DBName, "event_logs")
}

// Close releases the underlying connection
func (f *RepositoryFactory) Close(ctx context.Context) error {
	if f.SQLiteDB != nil {
		return f.SQLiteDB.Close()
	}
	if f.MongoClient != nil {
		return f.MongoClient.Disconnect(ctx)
	}
	return nil
}

// GenerateID generates a unique ID for a record
func GenerateID() string {
	return uuid.New().String()
}
