package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"todolist/db"
	"todolist/internal/eventlog"
	"todolist/internal/validation"
	"todolist/models"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotFound           = errors.New("user not found")
)

const storageTimeout = 5 * time.Second

// Credentials is the username/password pair submitted by the register and login forms
type Credentials struct {
	Username string `form:"username" validate:"required,max=64"`
	Password string `form:"password" validate:"required,max=72"`
}

type CredentialService struct {
	Repository      db.UserRepository
	EventLogService *eventlog.EventLogService
	// Cost is the bcrypt work factor used for new hashes
	Cost int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewCredentialService(repository db.UserRepository, eventLogService *eventlog.EventLogService) *CredentialService {
	return &CredentialService{
		Repository:      repository,
		EventLogService: eventLogService,
		Cost:            bcrypt.DefaultCost,
	}
}

// Register creates a user and returns its id
func (s *CredentialService) Register(ctx context.Context, username, password string) (string, error) {
	if err := validation.Struct(Credentials{Username: username, Password: password}); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	_, err := s.Repository.FindByUsername(ctx, username)
	if err == nil {
		return "", ErrUsernameTaken
	}
	if !errors.Is(err, db.ErrNotFound) {
		return "", fmt.Errorf("error checking username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.Cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", &models.ValidationError{Field: "password", Message: "must be at most 72 bytes"}
		}
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.Repository.Create(ctx, &models.User{
		Username:     username,
		PasswordHash: string(hash),
	})
	if err != nil {
		// Lost a race against a concurrent registration of the same name
		if errors.Is(err, db.ErrDuplicate) {
			return "", ErrUsernameTaken
		}
		return "", err
	}

	log.Printf("Registered user %s", username)
	s.EventLogService.Record(ctx, models.UserRegistered, username, nil)
	return user.ID, nil
}

// Verify checks a login attempt. Unknown usernames and wrong passwords
// yield the same ErrInvalidCredentials.
func (s *CredentialService) Verify(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	user, err := s.Repository.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Burn a comparison so response time does not reveal unknown usernames
			bcrypt.CompareHashAndPassword(s.placeholderHash(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}

	if !checkPassword(user.PasswordHash, password) {
		s.EventLogService.Record(ctx, models.LoginFailed, username, nil)
		return nil, ErrInvalidCredentials
	}

	if IsLegacyHash(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	return user, nil
}

func checkPassword(hash, password string) bool {
	if IsLegacyHash(hash) {
		return checkLegacyHash(hash, password)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// upgradeHash replaces a werkzeug hash with bcrypt after a successful login.
// The login still succeeds when the rewrite fails.
func (s *CredentialService) upgradeHash(ctx context.Context, user *models.User, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.Cost)
	if err != nil {
		log.Printf("Failed to rehash password for %s: %v", user.Username, err)
		return
	}
	if err := s.Repository.UpdatePasswordHash(ctx, user.ID, string(hash)); err != nil {
		log.Printf("Failed to store upgraded password hash for %s: %v", user.Username, err)
		return
	}
	user.PasswordHash = string(hash)
	log.Printf("Upgraded legacy password hash for %s", user.Username)
}

// FindByID returns the user with the given id
func (s *CredentialService) FindByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	user, err := s.Repository.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *CredentialService) placeholderHash() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("placeholder-password"), s.Cost)
		if err != nil {
			log.Printf("Failed to generate placeholder hash: %v", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
