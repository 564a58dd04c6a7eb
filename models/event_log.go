package models

import (
	"time"
)

// EventLog represents the event log entity
type EventLog struct {
	ID          string        `json:"id" bson:"_id,omitempty"`
	Type        EEventLogType `json:"type" bson:"type"`
	Username    string        `json:"username" bson:"username"`
	Description string        `json:"description" bson:"description"`
	TodoID      *string       `json:"todo_id,omitempty" bson:"todo_id,omitempty"`
	CreatedAt   *time.Time    `json:"created_at,omitempty" bson:"created_at,omitempty"`
}
