package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mijinummi/Lumenpulse/core"
)

// ResetTokenStore implements ports.ResetTokenStore on a pgx pool.
type ResetTokenStore struct {
	pool *pgxpool.Pool
}

// NewResetTokenStore creates a new postgres reset token store.
func NewResetTokenStore(pool *pgxpool.Pool) *ResetTokenStore {
	return &ResetTokenStore{pool: pool}
}

// Create persists a new reset token record.
func (s *ResetTokenStore) Create(ctx context.Context, token *core.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.pool.Exec(ctx, query,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return classify("create reset token", err)
	}
	return nil
}

// FindUnusedByHash retrieves a token by hash whose used_at is unset.
func (s *ResetTokenStore) FindUnusedByHash(ctx context.Context, tokenHash string) (*core.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1 AND used_at IS NULL
	`
	token := &core.PasswordResetToken{}
	err := s.pool.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.UsedAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, classify("find reset token by hash", err)
	}
	return token, nil
}

// MarkUsed stamps used_at on a token.
func (s *ResetTokenStore) MarkUsed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE password_reset_tokens
		SET used_at = NOW()
		WHERE id = $1 AND used_at IS NULL
	`
	if _, err := s.pool.Exec(ctx, query, id); err != nil {
		return classify("mark reset token used", err)
	}
	return nil
}

// InvalidateAllForUser stamps used_at on every unused token of a user.
func (s *ResetTokenStore) InvalidateAllForUser(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE password_reset_tokens
		SET used_at = NOW()
		WHERE user_id = $1 AND used_at IS NULL
	`
	if _, err := s.pool.Exec(ctx, query, userID); err != nil {
		return classify("invalidate reset tokens for user", err)
	}
	return nil
}

// Redeem burns the token and replaces the user's password hash in one
// transaction: both land or neither does.
func (s *ResetTokenStore) Redeem(ctx context.Context, tokenID, userID uuid.UUID, passwordHash string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify("begin redemption", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE password_reset_tokens
		SET used_at = NOW()
		WHERE id = $1 AND used_at IS NULL
	`, tokenID)
	if err != nil {
		return classify("burn reset token", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("redeem reset token: %w", core.ErrNotFound)
	}

	tag, err = tx.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, updated_at = NOW()
		WHERE id = $2
	`, passwordHash, userID)
	if err != nil {
		return classify("update password", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("redeem reset token: %w", core.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("commit redemption", err)
	}
	return nil
}
