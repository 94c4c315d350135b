package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/mijinummi/Lumenpulse/core"
)

// UserStore persists user records.
type UserStore interface {
	// UpsertByPublicKey creates a user for an unseen Stellar public key or
	// touches updated_at for a known one. Idempotent by key.
	UpsertByPublicKey(ctx context.Context, publicKey string) (*core.User, error)

	// FindByID retrieves a user by primary key.
	FindByID(ctx context.Context, id uuid.UUID) (*core.User, error)

	// FindByEmail retrieves a user by normalized email.
	FindByEmail(ctx context.Context, email string) (*core.User, error)
}

// RefreshTokenStore persists refresh token records.
type RefreshTokenStore interface {
	// Create inserts a new refresh token record.
	Create(ctx context.Context, token *core.RefreshToken) error

	// FindByHash retrieves a non-revoked token by its hash, regardless of
	// expiry. Expiry is the caller's concern.
	FindByHash(ctx context.Context, tokenHash string) (*core.RefreshToken, error)

	// Revoke stamps revoked_at on the token with the given hash. Revoking
	// an unknown or already-revoked token is a no-op, not an error.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeAllForUser stamps revoked_at on every live token of a user.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error

	// Rotate revokes the old token and inserts its replacement as a single
	// transaction. Partial application is a storage bug, never observable.
	Rotate(ctx context.Context, oldID uuid.UUID, replacement *core.RefreshToken) error
}

// ResetTokenStore persists one-time password reset tokens.
type ResetTokenStore interface {
	// Create inserts a new reset token record.
	Create(ctx context.Context, token *core.PasswordResetToken) error

	// FindUnusedByHash retrieves a token by hash whose used_at is unset.
	FindUnusedByHash(ctx context.Context, tokenHash string) (*core.PasswordResetToken, error)

	// MarkUsed stamps used_at on a token, making it terminal.
	MarkUsed(ctx context.Context, id uuid.UUID) error

	// InvalidateAllForUser stamps used_at on every unused token of a user.
	InvalidateAllForUser(ctx context.Context, userID uuid.UUID) error

	// Redeem stamps the token's used_at and replaces the user's password
	// hash as a single transaction.
	Redeem(ctx context.Context, tokenID, userID uuid.UUID, passwordHash string) error
}
