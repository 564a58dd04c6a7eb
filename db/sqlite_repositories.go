package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"todolist/internal/util"
	"todolist/models"

	"github.com/mattn/go-sqlite3"
)

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// SQLiteUserRepository implements the UserRepository interface for SQLite
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

// Create inserts a user, returning ErrDuplicate when the username is taken
func (r *SQLiteUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = GenerateID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	err := util.RetryOnLock(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
			user.ID, user.Username, user.PasswordHash, user.CreatedAt)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("error inserting user: %w", err)
	}

	return user, nil
}

// FindByID finds a user by ID
func (r *SQLiteUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// FindByUsername finds a user by exact, case-sensitive username
func (r *SQLiteUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// UpdatePasswordHash replaces the stored hash of a user
func (r *SQLiteUserRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	res, err := util.RetryOnLockWithResult(ctx, func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	})
	if err != nil {
		return fmt.Errorf("error updating password hash: %w", err)
	}
	return requireAffected(res)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning user: %w", err)
	}
	return &user, nil
}

// SQLiteTodoRepository implements the TodoRepository interface for SQLite
type SQLiteTodoRepository struct {
	db *sql.DB
}

// NewSQLiteTodoRepository creates a new SQLiteTodoRepository
func NewSQLiteTodoRepository(db *sql.DB) *SQLiteTodoRepository {
	return &SQLiteTodoRepository{db: db}
}

// Create inserts a todo
func (r *SQLiteTodoRepository) Create(ctx context.Context, todo *models.Todo) (*models.Todo, error) {
	if todo.ID == "" {
		todo.ID = GenerateID()
	}
	if todo.Status == "" {
		todo.Status = models.TodoStatusIncomplete
	}
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = time.Now()
	}

	err := util.RetryOnLock(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO todos (id, owner_username, text, due_date, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			todo.ID, todo.OwnerUsername, todo.Text, todo.DueDate, string(todo.Status), todo.CreatedAt)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("error inserting todo: %w", err)
	}

	return todo, nil
}

// FindByID finds a todo by ID
func (r *SQLiteTodoRepository) FindByID(ctx context.Context, id string) (*models.Todo, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_username, text, due_date, status, created_at FROM todos WHERE id = ?`, id)

	var todo models.Todo
	var status string
	err := row.Scan(&todo.ID, &todo.OwnerUsername, &todo.Text, &todo.DueDate, &status, &todo.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning todo: %w", err)
	}
	todo.Status = models.TodoStatus(status)

	return &todo, nil
}

// FindAllByOwner returns the owner's todos in insertion order
func (r *SQLiteTodoRepository) FindAllByOwner(ctx context.Context, username string) ([]*models.Todo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_username, text, due_date, status, created_at FROM todos
		WHERE owner_username = ? ORDER BY created_at ASC, rowid ASC`, username)
	if err != nil {
		return nil, fmt.Errorf("error querying todos: %w", err)
	}
	defer rows.Close()

	todos := []*models.Todo{}
	for rows.Next() {
		var todo models.Todo
		var status string
		if err := rows.Scan(&todo.ID, &todo.OwnerUsername, &todo.Text, &todo.DueDate, &status, &todo.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning todo: %w", err)
		}
		todo.Status = models.TodoStatus(status)
		todos = append(todos, &todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}

	return todos, nil
}

// UpdateStatus sets the status of a todo
func (r *SQLiteTodoRepository) UpdateStatus(ctx context.Context, id string, status models.TodoStatus) error {
	res, err := util.RetryOnLockWithResult(ctx, func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `UPDATE todos SET status = ? WHERE id = ?`, string(status), id)
	})
	if err != nil {
		return fmt.Errorf("error updating todo: %w", err)
	}
	return requireAffected(res)
}

// DeleteByID deletes a todo by ID
func (r *SQLiteTodoRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := util.RetryOnLockWithResult(ctx, func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	})
	if err != nil {
		return fmt.Errorf("error deleting todo: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SQLiteSessionRepository implements the SessionRepository interface for SQLite
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSQLiteSessionRepository creates a new SQLiteSessionRepository
func NewSQLiteSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

// Create stores a session binding
func (r *SQLiteSessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	err := util.RetryOnLock(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO sessions (id, user_id, username, created_at) VALUES (?, ?, ?, ?)`,
			session.ID, session.UserID, session.Username, session.CreatedAt)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error inserting session: %w", err)
	}
	return nil
}

// FindByID finds a session binding by token
func (r *SQLiteSessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, username, created_at FROM sessions WHERE id = ?`, id).
		Scan(&session.ID, &session.UserID, &session.Username, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning session: %w", err)
	}
	return &session, nil
}

// DeleteByID removes a session binding; deleting a missing binding is not an error
func (r *SQLiteSessionRepository) DeleteByID(ctx context.Context, id string) error {
	err := util.RetryOnLock(ctx, func() error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// SQLiteEventLogRepository implements the EventLogRepository interface for SQLite
type SQLiteEventLogRepository struct {
	db *sql.DB
}

// NewSQLiteEventLogRepository creates a new SQLiteEventLogRepository
func NewSQLiteEventLogRepository(db *sql.DB) *SQLiteEventLogRepository {
	return &SQLiteEventLogRepository{db: db}
}

// Create creates a new event log
func (r *SQLiteEventLogRepository) Create(ctx context.Context, eventLog *models.EventLog) error {
	if eventLog.ID == "" {
		eventLog.ID = GenerateID()
	}
	if eventLog.CreatedAt == nil {
		now := time.Now()
		eventLog.CreatedAt = &now
	}

	var todoID sql.NullString
	if eventLog.TodoID != nil {
		todoID = sql.NullString{String: *eventLog.TodoID, Valid: true}
	}

	err := util.RetryOnLock(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO event_logs (id, type, username, description, todo_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			eventLog.ID, string(eventLog.Type), eventLog.Username, eventLog.Description, todoID, *eventLog.CreatedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("error inserting event log: %w", err)
	}
	return nil
}

// FindLatestByUsername finds the newest event logs of a user
func (r *SQLiteEventLogRepository) FindLatestByUsername(ctx context.Context, username string, limit int) ([]*models.EventLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, username, description, todo_id, created_at FROM event_logs
		WHERE username = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, username, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying event logs: %w", err)
	}
	defer rows.Close()

	eventLogs := []*models.EventLog{}
	for rows.Next() {
		var eventLog models.EventLog
		var eventType string
		var todoID sql.NullString
		var createdAt time.Time

		if err := rows.Scan(&eventLog.ID, &eventType, &eventLog.Username, &eventLog.Description, &todoID, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning event log: %w", err)
		}
		eventLog.Type = models.EEventLogType(eventType)
		if todoID.Valid {
			eventLog.TodoID = &todoID.String
		}
		eventLog.CreatedAt = &createdAt
		eventLogs = append(eventLogs, &eventLog)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event logs: %w", err)
	}

	return eventLogs, nil
}
