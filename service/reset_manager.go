package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mijinummi/Lumenpulse/core"
	"github.com/mijinummi/Lumenpulse/internal/password"
	"github.com/mijinummi/Lumenpulse/ports"
)

// DefaultResetTTL is the fixed lifetime of a password reset token.
const DefaultResetTTL = time.Hour

// GenericResetMessage is returned for every reset request regardless of
// whether the email is registered, to prevent account enumeration.
const GenericResetMessage = "If that email is registered, a reset link has been sent."

// ResetManager issues and redeems one-time password reset tokens.
type ResetManager struct {
	users  ports.UserStore
	tokens ports.ResetTokenStore
	mailer ports.Mailer
	events ports.EventPublisher

	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewResetManager creates a new password reset manager.
func NewResetManager(users ports.UserStore, tokens ports.ResetTokenStore, mailer ports.Mailer, events ports.EventPublisher, logger *zap.Logger) *ResetManager {
	return &ResetManager{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		events: events,
		ttl:    DefaultResetTTL,
		logger: logger,
		now:    time.Now,
	}
}

// RequestReset issues a reset token for the account behind the email and
// dispatches it through the mail side channel. An unknown email is not an
// error: the caller returns the same generic message either way. Issuing a
// new token invalidates all prior unused tokens for the user.
func (m *ResetManager) RequestReset(ctx context.Context, email string) error {
	normalized := strings.ToLower(strings.TrimSpace(email))

	user, err := m.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			m.logger.Debug("reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if err := m.tokens.InvalidateAllForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to invalidate prior tokens: %w", err)
	}

	raw, err := newSecret()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	record := &core.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashSecret(raw),
		ExpiresAt: m.now().Add(m.ttl),
		CreatedAt: m.now(),
	}

	if err := m.tokens.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to persist reset token: %w", err)
	}

	// Delivery is best-effort: the token is already issued and a retry
	// arrives as a fresh request that supersedes it.
	if err := m.mailer.SendPasswordReset(ctx, normalized, raw); err != nil {
		m.logger.Warn("failed to send reset email",
			zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	return nil
}

// RedeemReset exchanges a raw reset token for a password change. The token
// burn and the password update land in one storage transaction. An expired
// token is burnt before the failure is reported, so it cannot be retried.
func (m *ResetManager) RedeemReset(ctx context.Context, raw, newPassword string) error {
	record, err := m.tokens.FindUnusedByHash(ctx, hashSecret(raw))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrResetTokenInvalid
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	if m.now().After(record.ExpiresAt) {
		if err := m.tokens.MarkUsed(ctx, record.ID); err != nil {
			return fmt.Errorf("failed to burn expired reset token: %w", err)
		}
		return core.ErrResetTokenExpired
	}

	user, err := m.users.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrUserGone
		}
		return fmt.Errorf("failed to load token owner: %w", err)
	}

	passwordHash, err := password.Hash(newPassword, nil)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := m.tokens.Redeem(ctx, record.ID, user.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to redeem reset token: %w", err)
	}

	if m.events != nil {
		if err := m.events.PublishPasswordReset(ctx, user.ID.String()); err != nil {
			m.logger.Warn("failed to publish password reset event", zap.Error(err))
		}
	}

	return nil
}
