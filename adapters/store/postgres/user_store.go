package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mijinummi/Lumenpulse/core"
)

// UserStore implements ports.UserStore on a pgx pool.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new postgres user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// UpsertByPublicKey creates a user for an unseen Stellar public key or
// touches updated_at for a known one, in a single statement.
func (s *UserStore) UpsertByPublicKey(ctx context.Context, publicKey string) (*core.User, error) {
	query := `
		INSERT INTO users (id, stellar_public_key, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (stellar_public_key)
		DO UPDATE SET updated_at = NOW()
		RETURNING id, email, password_hash, stellar_public_key, created_at, updated_at
	`
	user := &core.User{}
	err := s.pool.QueryRow(ctx, query, uuid.New(), publicKey).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.StellarPublicKey, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, classify("upsert user by public key", err)
	}
	return user, nil
}

// FindByID retrieves a user by primary key.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*core.User, error) {
	query := `
		SELECT id, email, password_hash, stellar_public_key, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	user := &core.User{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.StellarPublicKey, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, classify("find user by id", err)
	}
	return user, nil
}

// FindByEmail retrieves a user by email. Emails are stored normalized, so
// the lookup is a plain equality match.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	query := `
		SELECT id, email, password_hash, stellar_public_key, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	user := &core.User{}
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.StellarPublicKey, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, classify("find user by email", err)
	}
	return user, nil
}
