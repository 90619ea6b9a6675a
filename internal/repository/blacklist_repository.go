package repository

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/evnet/event-network-api/internal/utils"
)

// BlacklistRepo is the revocation ledger: access tokens invalidated before
// their natural expiry.  Every read applies `expires_at > now`, so the
// periodic sweep is purely storage reclamation, never a correctness
// requirement — an entry past its expiry is indistinguishable from a pruned
// one because expiry verification already rejects the token.
type BlacklistRepo struct{ DB *sql.DB }

func NewBlacklistRepo(db *sql.DB) *BlacklistRepo { return &BlacklistRepo{DB: db} }

// Add inserts a revoked token.  Rows are keyed by the token's SHA-256
// digest, so uniqueness and lookups cover the full token string however long
// the claims make it.  expiresAt must be the token's own exp claim so the
// entry never outlives the token.  Inserting a token that is already
// blacklisted is not an error.
func (r *BlacklistRepo) Add(ctx context.Context, token string, userID uint64, reason string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO token_blacklist (token, token_sha, user_id, reason, expires_at) VALUES (?,?,?,?,?)",
		token, utils.HashToken(token), userID, reason, expiresAt.UTC())
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return nil // already blacklisted, which is fine
	}
	return err
}

// IsBlacklisted reports whether the exact token string is present with an
// unexpired entry.
func (r *BlacklistRepo) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM token_blacklist WHERE token_sha=? AND expires_at > UTC_TIMESTAMP() LIMIT 1",
		utils.HashToken(token)).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteExpired removes entries whose expiry has passed and returns how many
// rows were reclaimed.
func (r *BlacklistRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM token_blacklist WHERE expires_at <= UTC_TIMESTAMP()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartSweeper launches a goroutine that prunes expired entries every
// interval until ctx is cancelled.  Errors are logged and the loop keeps
// running; a failed sweep only delays reclamation.
func (r *BlacklistRepo) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := r.DeleteExpired(ctx)
				if err != nil {
					log.Printf("blacklist-sweeper: delete expired failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("blacklist-sweeper: pruned %d expired entries", n)
				}
			}
		}
	}()
}
