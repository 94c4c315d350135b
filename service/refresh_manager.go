package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mijinummi/Lumenpulse/core"
	"github.com/mijinummi/Lumenpulse/ports"
)

// DefaultRefreshTTL is the fixed lifetime of a refresh token.
const DefaultRefreshTTL = 30 * 24 * time.Hour

// RotateResult is the new session pair produced by a rotation.
type RotateResult struct {
	AccessToken  string
	RefreshToken string
}

// RefreshManager persists, validates, rotates and revokes refresh tokens.
// Secrets are 32 random bytes; only their SHA-256 hash ever reaches storage.
type RefreshManager struct {
	tokens    ports.RefreshTokenStore
	users     ports.UserStore
	tokenizer ports.Tokenizer

	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewRefreshManager creates a new refresh token manager.
func NewRefreshManager(tokens ports.RefreshTokenStore, users ports.UserStore, tokenizer ports.Tokenizer, logger *zap.Logger) *RefreshManager {
	return &RefreshManager{
		tokens:    tokens,
		users:     users,
		tokenizer: tokenizer,
		ttl:       DefaultRefreshTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Issue creates a refresh token for the user and returns the raw secret.
// The secret is never persisted and never returned again.
func (m *RefreshManager) Issue(ctx context.Context, userID uuid.UUID, meta TokenMeta) (string, error) {
	raw, err := newSecret()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	record := &core.RefreshToken{
		ID:         uuid.New(),
		UserID:     userID,
		TokenHash:  hashSecret(raw),
		ExpiresAt:  m.now().Add(m.ttl),
		DeviceInfo: meta.DeviceInfo,
		IPAddress:  meta.IPAddress,
		CreatedAt:  m.now(),
	}

	if err := m.tokens.Create(ctx, record); err != nil {
		return "", fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return raw, nil
}

// Validate resolves a raw token to its user and record. An unknown or
// revoked token yields ErrInvalidToken; an expired one is revoked on the
// spot and yields ErrTokenExpired.
func (m *RefreshManager) Validate(ctx context.Context, raw string) (*core.User, *core.RefreshToken, error) {
	record, err := m.tokens.FindByHash(ctx, hashSecret(raw))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, core.ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	if m.now().After(record.ExpiresAt) {
		if err := m.tokens.Revoke(ctx, record.TokenHash); err != nil {
			m.logger.Warn("failed to revoke expired refresh token", zap.Error(err))
		}
		return nil, nil, core.ErrTokenExpired
	}

	user, err := m.users.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, core.ErrUserGone
		}
		return nil, nil, fmt.Errorf("failed to load token owner: %w", err)
	}

	return user, record, nil
}

// Rotate exchanges a valid refresh token for a fresh session pair. The
// presented token is revoked and its replacement inserted in one storage
// transaction, so every refresh token is single-use.
func (m *RefreshManager) Rotate(ctx context.Context, raw string, meta TokenMeta) (*RotateResult, error) {
	user, record, err := m.Validate(ctx, raw)
	if err != nil {
		return nil, err
	}

	newRaw, err := newSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	replacement := &core.RefreshToken{
		ID:         uuid.New(),
		UserID:     user.ID,
		TokenHash:  hashSecret(newRaw),
		ExpiresAt:  m.now().Add(m.ttl),
		DeviceInfo: meta.DeviceInfo,
		IPAddress:  meta.IPAddress,
		CreatedAt:  m.now(),
	}

	if err := m.tokens.Rotate(ctx, record.ID, replacement); err != nil {
		// A concurrent rotation or revocation got there first.
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	accessToken, err := m.tokenizer.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &RotateResult{
		AccessToken:  accessToken,
		RefreshToken: newRaw,
	}, nil
}

// Revoke invalidates a refresh token. Revoking an unknown or already
// revoked token succeeds silently, so a logout caller learns nothing about
// token validity.
func (m *RefreshManager) Revoke(ctx context.Context, raw string) error {
	if err := m.tokens.Revoke(ctx, hashSecret(raw)); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAll invalidates every live refresh token of a user.
func (m *RefreshManager) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	if err := m.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

// newSecret returns 32 cryptographically random bytes, hex-encoded.
func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashSecret is the irreversible form under which secrets are persisted.
func hashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
