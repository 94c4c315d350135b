package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mijinummi/Lumenpulse/core"
	"github.com/mijinummi/Lumenpulse/ports"
)

// Store is an in-memory persistence gateway. One mutex guards all record
// types so cross-record operations (rotation, redemption) stay atomic.
// This is primarily intended for testing.
type Store struct {
	mu sync.Mutex

	users        map[uuid.UUID]*core.User
	usersByKey   map[string]uuid.UUID
	usersByEmail map[string]uuid.UUID
	refresh      map[uuid.UUID]*core.RefreshToken
	reset        map[uuid.UUID]*core.PasswordResetToken

	now func() time.Time
}

// NewStore creates an empty in-memory gateway.
func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]*core.User),
		usersByKey:   make(map[string]uuid.UUID),
		usersByEmail: make(map[string]uuid.UUID),
		refresh:      make(map[uuid.UUID]*core.RefreshToken),
		reset:        make(map[uuid.UUID]*core.PasswordResetToken),
		now:          time.Now,
	}
}

// Users returns the user store view.
func (s *Store) Users() ports.UserStore { return userView{s} }

// RefreshTokens returns the refresh token store view.
func (s *Store) RefreshTokens() ports.RefreshTokenStore { return refreshView{s} }

// ResetTokens returns the reset token store view.
func (s *Store) ResetTokens() ports.ResetTokenStore { return resetView{s} }

// SeedUser inserts a user record directly, for tests.
func (s *Store) SeedUser(user *core.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *user
	s.users[user.ID] = &copied
	if user.StellarPublicKey != nil {
		s.usersByKey[*user.StellarPublicKey] = user.ID
	}
	if user.Email != nil {
		s.usersByEmail[*user.Email] = user.ID
	}
}

// DeleteUser removes a user record directly, for tests.
func (s *Store) DeleteUser(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return
	}
	if user.StellarPublicKey != nil {
		delete(s.usersByKey, *user.StellarPublicKey)
	}
	if user.Email != nil {
		delete(s.usersByEmail, *user.Email)
	}
	delete(s.users, id)
}

type userView struct{ s *Store }

func (v userView) UpsertByPublicKey(ctx context.Context, publicKey string) (*core.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	now := v.s.now()
	if id, ok := v.s.usersByKey[publicKey]; ok {
		user := v.s.users[id]
		user.UpdatedAt = now
		copied := *user
		return &copied, nil
	}

	key := publicKey
	user := &core.User{
		ID:               uuid.New(),
		StellarPublicKey: &key,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	v.s.users[user.ID] = user
	v.s.usersByKey[publicKey] = user.ID

	copied := *user
	return &copied, nil
}

func (v userView) FindByID(ctx context.Context, id uuid.UUID) (*core.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	user, ok := v.s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (v userView) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	id, ok := v.s.usersByEmail[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	copied := *v.s.users[id]
	return &copied, nil
}

type refreshView struct{ s *Store }

func (v refreshView) Create(ctx context.Context, token *core.RefreshToken) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	copied := *token
	v.s.refresh[token.ID] = &copied
	return nil
}

func (v refreshView) FindByHash(ctx context.Context, tokenHash string) (*core.RefreshToken, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	for _, token := range v.s.refresh {
		if token.TokenHash == tokenHash && token.RevokedAt == nil {
			copied := *token
			return &copied, nil
		}
	}
	return nil, core.ErrNotFound
}

func (v refreshView) Revoke(ctx context.Context, tokenHash string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	now := v.s.now()
	for _, token := range v.s.refresh {
		if token.TokenHash == tokenHash && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (v refreshView) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	now := v.s.now()
	for _, token := range v.s.refresh {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (v refreshView) Rotate(ctx context.Context, oldID uuid.UUID, replacement *core.RefreshToken) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	old, ok := v.s.refresh[oldID]
	if !ok || old.RevokedAt != nil {
		return fmt.Errorf("rotate refresh token: %w", core.ErrNotFound)
	}

	now := v.s.now()
	old.RevokedAt = &now

	copied := *replacement
	v.s.refresh[replacement.ID] = &copied
	return nil
}

type resetView struct{ s *Store }

func (v resetView) Create(ctx context.Context, token *core.PasswordResetToken) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	copied := *token
	v.s.reset[token.ID] = &copied
	return nil
}

func (v resetView) FindUnusedByHash(ctx context.Context, tokenHash string) (*core.PasswordResetToken, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	for _, token := range v.s.reset {
		if token.TokenHash == tokenHash && token.UsedAt == nil {
			copied := *token
			return &copied, nil
		}
	}
	return nil, core.ErrNotFound
}

func (v resetView) MarkUsed(ctx context.Context, id uuid.UUID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	token, ok := v.s.reset[id]
	if !ok {
		return fmt.Errorf("mark reset token used: %w", core.ErrNotFound)
	}
	if token.UsedAt == nil {
		now := v.s.now()
		token.UsedAt = &now
	}
	return nil
}

func (v resetView) InvalidateAllForUser(ctx context.Context, userID uuid.UUID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	now := v.s.now()
	for _, token := range v.s.reset {
		if token.UserID == userID && token.UsedAt == nil {
			token.UsedAt = &now
		}
	}
	return nil
}

// Redeem burns the token and replaces the user's password hash under one
// lock acquisition, mirroring the single-transaction contract of the
// postgres gateway.
func (v resetView) Redeem(ctx context.Context, tokenID, userID uuid.UUID, passwordHash string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	token, ok := v.s.reset[tokenID]
	if !ok || token.UsedAt != nil {
		return fmt.Errorf("redeem reset token: %w", core.ErrNotFound)
	}
	user, ok := v.s.users[userID]
	if !ok {
		return fmt.Errorf("redeem reset token: %w", core.ErrNotFound)
	}

	now := v.s.now()
	token.UsedAt = &now
	hash := passwordHash
	user.PasswordHash = &hash
	user.UpdatedAt = now
	return nil
}
