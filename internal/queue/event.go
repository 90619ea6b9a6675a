// Package queue defines message payloads exchanged over the message broker.
package queue

// Auth activity event types.
const (
	EventRegistered     = "user.registered"
	EventLoggedIn       = "user.logged_in"
	EventRefreshed      = "session.refreshed"
	EventLoggedOut      = "session.logged_out"
	EventPasswordChange = "user.password_changed"
)

// AuthActivityEvent is published whenever a credential-lifecycle transition
// happens (register, login, refresh, logout, password change).  It carries
// enough information for the audit consumer to log the event without
// querying the primary database.
type AuthActivityEvent struct {
	Event  string `json:"event"`
	UserID uint64 `json:"user_id"`
	Email  string `json:"email"`
	IP     string `json:"ip"`
	At     string `json:"at"`
}
