package models

type EEventLogType string

const (
	UserRegistered EEventLogType = "User registered"
	UserLoggedIn   EEventLogType = "User logged in"
	LoginFailed    EEventLogType = "Login failed"
	UserLoggedOut  EEventLogType = "User logged out"
	TodoCreated    EEventLogType = "Todo created"
	TodoCompleted  EEventLogType = "Todo completed"
	TodoDeleted    EEventLogType = "Todo deleted"
)
