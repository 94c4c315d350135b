package core

import "errors"

var (
	// ErrInvalidKeyFormat is returned when a public key does not parse as a
	// Stellar ed25519 account ID.
	ErrInvalidKeyFormat = errors.New("invalid public key format")

	// ErrNoChallenge is returned when no outstanding challenge exists for an
	// account.
	ErrNoChallenge = errors.New("no challenge found")

	// ErrChallengeExpired is returned when a challenge is past its expiry.
	ErrChallengeExpired = errors.New("challenge has expired")

	// ErrMalformedPayload is returned when a signed challenge submission
	// cannot be decoded.
	ErrMalformedPayload = errors.New("malformed challenge payload")

	// ErrSignatureMismatch is returned when no submitted signature verifies
	// under the requesting account's key.
	ErrSignatureMismatch = errors.New("signature mismatch")

	// ErrInvalidToken is returned for an unknown or revoked refresh token.
	ErrInvalidToken = errors.New("invalid or revoked token")

	// ErrTokenExpired is returned when a refresh token is past its expiry.
	ErrTokenExpired = errors.New("token has expired")

	// ErrResetTokenInvalid is returned for an unknown or already-used
	// password reset token.
	ErrResetTokenInvalid = errors.New("invalid or used reset token")

	// ErrResetTokenExpired is returned when a reset token is past its expiry.
	// The token is burnt before this is returned.
	ErrResetTokenExpired = errors.New("reset token has expired")

	// ErrUserGone is returned when a token's owning user record no longer
	// exists.
	ErrUserGone = errors.New("user no longer exists")

	// ErrNotFound is returned by storage adapters when no record matches.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned by storage adapters on unique constraint
	// violations.
	ErrConflict = errors.New("record already exists")

	// ErrUnavailable is returned by storage and network adapters on
	// transient failures.
	ErrUnavailable = errors.New("backend unavailable")
)

// ErrorClass partitions failures for callers that need to decide on
// retry-worthiness without inspecting adapter internals.
type ErrorClass int

const (
	// ClassPermanent marks failures that will not succeed on retry.
	ClassPermanent ErrorClass = iota
	// ClassNotFound marks absent-record failures.
	ClassNotFound
	// ClassTransient marks failures worth retrying.
	ClassTransient
)

// Classify maps an error to its class. Adapters wrap their failures in the
// sentinels above exactly once at the boundary, so a single errors.Is walk
// is sufficient here.
func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrUnavailable):
		return ClassTransient
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	default:
		return ClassPermanent
	}
}
