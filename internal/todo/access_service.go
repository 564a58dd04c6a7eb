package todo

import (
	"net/http"

	"todolist/models"
)

// IdentityResolver resolves the principal of a request
type IdentityResolver interface {
	Resolve(r *http.Request) (models.Identity, bool, error)
}

// AccessService is the trust boundary between requests and todos. The
// acting username always comes from the resolved session, never from
// request input.
type AccessService struct {
	Sessions IdentityResolver
	Todos    *TodoService
}

func NewAccessService(sessions IdentityResolver, todos *TodoService) *AccessService {
	return &AccessService{Sessions: sessions, Todos: todos}
}

func (s *AccessService) identity(r *http.Request) (models.Identity, error) {
	identity, ok, err := s.Sessions.Resolve(r)
	if err != nil {
		return models.Identity{}, err
	}
	if !ok {
		return models.Identity{}, ErrUnauthenticated
	}
	return identity, nil
}

func (s *AccessService) List(r *http.Request) ([]*models.Todo, error) {
	identity, err := s.identity(r)
	if err != nil {
		return nil, err
	}
	return s.Todos.ListByOwner(r.Context(), identity.Username)
}

func (s *AccessService) Create(r *http.Request, text, dueDate string) (*models.Todo, error) {
	identity, err := s.identity(r)
	if err != nil {
		return nil, err
	}
	return s.Todos.Create(r.Context(), identity.Username, text, dueDate)
}

func (s *AccessService) MarkComplete(r *http.Request, id string) error {
	identity, err := s.identity(r)
	if err != nil {
		return err
	}
	return s.Todos.MarkComplete(r.Context(), id, identity.Username)
}

func (s *AccessService) Delete(r *http.Request, id string) error {
	identity, err := s.identity(r)
	if err != nil {
		return err
	}
	return s.Todos.Delete(r.Context(), id, identity.Username)
}
