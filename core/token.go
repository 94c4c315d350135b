package core

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is a persisted refresh credential. Only the SHA-256 hash of
// the secret is stored; the raw secret is returned to the caller once at
// creation and never again.
type RefreshToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	DeviceInfo *string
	IPAddress  *string
	CreatedAt  time.Time
}

// Usable reports whether the token may still be presented: not revoked and
// not past expiry.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// PasswordResetToken is a one-time password reset credential. Terminal once
// UsedAt is set, including when it is burnt on expiry-during-redemption.
type PasswordResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
