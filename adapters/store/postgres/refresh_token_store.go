package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mijinummi/Lumenpulse/core"
)

// RefreshTokenStore implements ports.RefreshTokenStore on a pgx pool.
type RefreshTokenStore struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenStore creates a new postgres refresh token store.
func NewRefreshTokenStore(pool *pgxpool.Pool) *RefreshTokenStore {
	return &RefreshTokenStore{pool: pool}
}

// Create persists a new refresh token record.
func (s *RefreshTokenStore) Create(ctx context.Context, token *core.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, device_info, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, query,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.DeviceInfo, token.IPAddress, token.CreatedAt,
	)
	if err != nil {
		return classify("create refresh token", err)
	}
	return nil
}

// FindByHash retrieves a non-revoked token by hash. Expiry is deliberately
// not filtered here: the manager stamps expired tokens revoked itself.
func (s *RefreshTokenStore) FindByHash(ctx context.Context, tokenHash string) (*core.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked_at, device_info, ip_address, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL
	`
	token := &core.RefreshToken{}
	err := s.pool.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt,
		&token.RevokedAt, &token.DeviceInfo, &token.IPAddress, &token.CreatedAt,
	)
	if err != nil {
		return nil, classify("find refresh token by hash", err)
	}
	return token, nil
}

// Revoke stamps revoked_at on the matching live token. Matching nothing is
// not an error.
func (s *RefreshTokenStore) Revoke(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`
	if _, err := s.pool.Exec(ctx, query, tokenHash); err != nil {
		return classify("revoke refresh token", err)
	}
	return nil
}

// RevokeAllForUser stamps revoked_at on every live token of a user.
func (s *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL
	`
	if _, err := s.pool.Exec(ctx, query, userID); err != nil {
		return classify("revoke refresh tokens for user", err)
	}
	return nil
}

// Rotate revokes the old token and inserts its replacement in one
// transaction. If the old token was already revoked by a concurrent
// rotation, nothing is applied and core.ErrNotFound is returned.
func (s *RefreshTokenStore) Rotate(ctx context.Context, oldID uuid.UUID, replacement *core.RefreshToken) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify("begin rotation", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL
	`, oldID)
	if err != nil {
		return classify("revoke rotated token", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("rotate refresh token: %w", core.ErrNotFound)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, device_info, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, replacement.ID, replacement.UserID, replacement.TokenHash, replacement.ExpiresAt,
		replacement.DeviceInfo, replacement.IPAddress, replacement.CreatedAt,
	)
	if err != nil {
		return classify("insert replacement token", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("commit rotation", err)
	}
	return nil
}
