package core

import (
	"time"

	"github.com/google/uuid"
)

// User is an account on the platform. Identity is established either by a
// password credential or by a linked Stellar public key; both fields are
// optional but at least one is always set.
type User struct {
	ID               uuid.UUID
	Email            *string
	PasswordHash     *string
	StellarPublicKey *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
