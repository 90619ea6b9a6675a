package model

import "time"

// Reasons an access token can be forced into the blacklist.
const (
	BlacklistReasonLogout         = "logout"
	BlacklistReasonPasswordChange = "password_change"
	BlacklistReasonSecurity       = "security"
)

// BlacklistEntry models a row in the `token_blacklist` table: an access
// token invalidated before its natural expiry.  ExpiresAt is copied from
// the token's own exp claim, so an entry never outlives the token it
// revokes; once the token would be rejected by expiry verification alone
// the row is dead weight and the sweeper may delete it.
type BlacklistEntry struct {
	ID            uint64    // token_blacklist.id
	Token         string    // token_blacklist.token (the exact signed string)
	TokenSHA      string    // token_blacklist.token_sha (SHA-256 hex, unique)
	UserID        uint64    // token_blacklist.user_id
	Reason        string    // token_blacklist.reason
	ExpiresAt     time.Time // token_blacklist.expires_at
	BlacklistedAt time.Time // token_blacklist.blacklisted_at
}
