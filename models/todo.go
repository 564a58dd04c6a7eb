package models

import "time"

type TodoStatus string

const (
	TodoStatusIncomplete TodoStatus = "incomplete"
	TodoStatusComplete   TodoStatus = "complete"
)

// Todo is a dated task owned by a single user
type Todo struct {
	ID            string     `json:"id" bson:"_id,omitempty"`
	OwnerUsername string     `json:"owner_username" bson:"username"`
	Text          string     `json:"text" bson:"todo"`
	DueDate       string     `json:"due_date" bson:"date"`
	Status        TodoStatus `json:"status" bson:"status"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}

// IsComplete reports whether the todo reached its terminal state
func (t *Todo) IsComplete() bool {
	return t.Status == TodoStatusComplete
}
