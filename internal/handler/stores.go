package handler

import (
	"context"
	"time"

	"github.com/evnet/event-network-api/internal/model"
)

// Store interfaces consumed by the auth handlers.  The MySQL repositories
// satisfy them in production; tests substitute in-memory fakes.

// UserStore is the credential store: user records with hashed passwords and
// the activity timestamp that drives the idle-session window.
type UserStore interface {
	Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, newPassword string, cost int) error
	TouchActivity(ctx context.Context, id uint64, at time.Time) error
	List(ctx context.Context) ([]model.User, error)
}

// RefreshTokenStore holds the set of active refresh tokens, keyed by hash.
type RefreshTokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// BlacklistStore is the write side of the revocation ledger; the session
// guard owns the read side.
type BlacklistStore interface {
	Add(ctx context.Context, token string, userID uint64, reason string, expiresAt time.Time) error
}
