package eventlog

import (
	"context"
	"fmt"
	"log"
	"time"

	"todolist/db"
	"todolist/models"
)

const recordTimeout = 5 * time.Second

type EventLogService struct {
	Repository db.EventLogRepository
}

func NewEventLogService(repository db.EventLogRepository) *EventLogService {
	return &EventLogService{Repository: repository}
}

// Record appends an event for username. Failures are logged and swallowed so
// the audited operation still completes.
func (s *EventLogService) Record(ctx context.Context, eventType models.EEventLogType, username string, todoID *string) {
	if s == nil || s.Repository == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	eventLog := &models.EventLog{
		Type:     eventType,
		Username: username,
		TodoID:   todoID,
	}
	eventLog.Description = s.generateDescription(eventLog)

	if err := s.Repository.Create(ctx, eventLog); err != nil {
		log.Printf("Failed to record %q event for %s: %v", eventType, username, err)
	}
}

func (s *EventLogService) GetLatest(ctx context.Context, username string, limit int) ([]*models.EventLog, error) {
	if s == nil || s.Repository == nil {
		return []*models.EventLog{}, nil
	}
	return s.Repository.FindLatestByUsername(ctx, username, limit)
}

func (s *EventLogService) generateDescription(eventLog *models.EventLog) string {
	todoInfo := "unknown todo"
	if eventLog.TodoID != nil {
		todoInfo = *eventLog.TodoID
	}

	switch eventLog.Type {
	case models.UserRegistered:
		return fmt.Sprintf("Account [%s] created", eventLog.Username)
	case models.UserLoggedIn:
		return "Signed in"
	case models.LoginFailed:
		return "Failed sign-in attempt"
	case models.UserLoggedOut:
		return "Signed out"
	case models.TodoCreated:
		return fmt.Sprintf("Todo [%s] created", todoInfo)
	case models.TodoCompleted:
		return fmt.Sprintf("Todo [%s] completed", todoInfo)
	case models.TodoDeleted:
		return fmt.Sprintf("Todo [%s] deleted", todoInfo)
	default:
		return "Event occurred"
	}
}
