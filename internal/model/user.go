package model

import "time"

// User represents an application user record as stored in the `users`
// table.  The password hash never leaves the repository layer except for
// credential checks; handlers define separate response types with the
// public fields only.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Email        – unique, lowercased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – either "user" or "admin".
//  LastActivity – timestamp of the last guarded request; drives the
//                 idle-session timeout.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	LastActivity time.Time // users.last_activity
	CreatedAt    time.Time // users.created_at
}

// Roles recognized by the role column and the role gate.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// RefreshToken models a row in the `refresh_tokens` table.  Each user may
// hold several active tokens at once (one per device/session).  The plain
// token is never stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
