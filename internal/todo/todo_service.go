package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"todolist/db"
	"todolist/internal/eventlog"
	"todolist/internal/validation"
	"todolist/models"
)

var (
	ErrNotFound        = errors.New("todo not found")
	ErrForbidden       = errors.New("todo belongs to another user")
	ErrUnauthenticated = errors.New("authentication required")
)

const storageTimeout = 5 * time.Second

// NewTodo is the input accepted when creating a todo
type NewTodo struct {
	Text    string `form:"text" validate:"required,max=500"`
	DueDate string `form:"due_date" validate:"required,max=32"`
}

// TodoService stores todos and enforces the ownership check on every
// mutation. Callers supply the acting username; see AccessService for the
// request-bound entry point.
type TodoService struct {
	Repository      db.TodoRepository
	EventLogService *eventlog.EventLogService
}

func NewTodoService(repository db.TodoRepository, eventLogService *eventlog.EventLogService) *TodoService {
	return &TodoService{
		Repository:      repository,
		EventLogService: eventLogService,
	}
}

func (s *TodoService) Create(ctx context.Context, owner, text, dueDate string) (*models.Todo, error) {
	input := NewTodo{
		Text:    strings.TrimSpace(text),
		DueDate: strings.TrimSpace(dueDate),
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	todo, err := s.Repository.Create(ctx, &models.Todo{
		OwnerUsername: owner,
		Text:          input.Text,
		DueDate:       input.DueDate,
		Status:        models.TodoStatusIncomplete,
	})
	if err != nil {
		return nil, err
	}

	s.EventLogService.Record(ctx, models.TodoCreated, owner, &todo.ID)
	return todo, nil
}

// ListByOwner returns the owner's todos in insertion order, never nil
func (s *TodoService) ListByOwner(ctx context.Context, owner string) ([]*models.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	todos, err := s.Repository.FindAllByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []*models.Todo{}
	}
	return todos, nil
}

// MarkComplete moves an owned todo to the complete state. Completing an
// already complete todo succeeds without a write.
func (s *TodoService) MarkComplete(ctx context.Context, id, acting string) error {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	todo, err := s.findOwned(ctx, id, acting)
	if err != nil {
		return err
	}
	if todo.IsComplete() {
		return nil
	}

	if err := s.Repository.UpdateStatus(ctx, id, models.TodoStatusComplete); err != nil {
		return translate(err)
	}

	s.EventLogService.Record(ctx, models.TodoCompleted, acting, &todo.ID)
	return nil
}

func (s *TodoService) Delete(ctx context.Context, id, acting string) error {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	todo, err := s.findOwned(ctx, id, acting)
	if err != nil {
		return err
	}

	if err := s.Repository.DeleteByID(ctx, id); err != nil {
		return translate(err)
	}

	s.EventLogService.Record(ctx, models.TodoDeleted, acting, &todo.ID)
	return nil
}

func (s *TodoService) findOwned(ctx context.Context, id, acting string) (*models.Todo, error) {
	todo, err := s.Repository.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if todo.OwnerUsername != acting {
		return nil, ErrForbidden
	}
	return todo, nil
}

func translate(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("todo storage: %w", err)
}
