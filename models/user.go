package models

import "time"

// User represents a registered account
type User struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	Username     string    `json:"username" bson:"username"`
	PasswordHash string    `json:"-" bson:"password"` // Never serialize password
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// Identity is the authenticated principal of a request
type Identity struct {
	ID       string
	Username string
}

// IsZero reports whether the identity is anonymous
func (i Identity) IsZero() bool {
	return i.ID == "" && i.Username == ""
}
