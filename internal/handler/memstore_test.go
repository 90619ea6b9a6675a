package handler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/evnet/event-network-api/internal/model"
	"github.com/evnet/event-network-api/internal/repository"
	"github.com/evnet/event-network-api/internal/utils"
)

// memStore is an in-memory stand-in for all three MySQL repositories.  It
// satisfies the handler store interfaces plus the session guard's UserStore
// and RevocationStore, so a full request can flow through the real
// middleware and handlers without a database.
type memStore struct {
	mu        sync.Mutex
	seq       uint64
	users     map[uint64]model.User
	byEmail   map[string]uint64
	refresh   map[string]model.RefreshToken
	blacklist map[string]model.BlacklistEntry
	revokeErr error // when set, RevokeByHash fails with it
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[uint64]model.User{},
		byEmail:   map[string]uint64{},
		refresh:   map[string]model.RefreshToken{},
		blacklist: map[string]model.BlacklistEntry{},
	}
}

func (s *memStore) Create(_ context.Context, name, email, password, role string, cost int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := s.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	s.seq++
	u := model.User{
		ID: s.seq, Name: name, Email: email, PasswordHash: hash, Role: role,
		LastActivity: time.Now().UTC(), CreatedAt: time.Now().UTC(),
	}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return u.ID, nil
}

func (s *memStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return s.users[id], nil
}

func (s *memStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *memStore) UpdatePassword(_ context.Context, id uint64, newPassword string, cost int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, err := utils.HashPassword(newPassword, cost)
	if err != nil {
		return err
	}
	u := s.users[id]
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

func (s *memStore) TouchActivity(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastActivity = at.UTC()
	s.users[id] = u
	return nil
}

func (s *memStore) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

// setLastActivity backdates a user's activity timestamp, simulating an idle
// session without a real clock.
func (s *memStore) setLastActivity(id uint64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.LastActivity = at
	s.users[id] = u
}

func (s *memStore) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[tokenHash] = model.RefreshToken{
		UserID: userID, TokenHash: tokenHash, ExpiresAt: exp, CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *memStore) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.refresh[tokenHash]
	if !ok || rt.RevokedAt != nil || time.Now().UTC().After(rt.ExpiresAt) {
		return 0, repository.ErrNotFound
	}
	return rt.UserID, nil
}

func (s *memStore) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revokeErr != nil {
		return s.revokeErr
	}
	if rt, ok := s.refresh[tokenHash]; ok && rt.RevokedAt == nil {
		now := time.Now().UTC()
		rt.RevokedAt = &now
		s.refresh[tokenHash] = rt
	}
	return nil
}

func (s *memStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for h, rt := range s.refresh {
		if rt.UserID == userID && rt.RevokedAt == nil {
			rt.RevokedAt = &now
			s.refresh[h] = rt
		}
	}
	return nil
}

func (s *memStore) Add(_ context.Context, token string, userID uint64, reason string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blacklist[token]; ok {
		return nil // already blacklisted, which is fine
	}
	s.blacklist[token] = model.BlacklistEntry{
		Token: token, UserID: userID, Reason: reason,
		ExpiresAt: expiresAt, BlacklistedAt: time.Now().UTC(),
	}
	return nil
}

func (s *memStore) IsBlacklisted(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.blacklist[token]
	return ok && e.ExpiresAt.After(time.Now().UTC()), nil
}
