package models

import "time"

// Session binds an opaque token to a user
type Session struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Username  string    `bson:"username"`
	CreatedAt time.Time `bson:"created_at"`
}
