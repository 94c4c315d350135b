// Package postgres implements the persistence gateway on pgx. Driver
// failures are classified into the core sentinels exactly once here, so
// callers decide on retry-worthiness with core.Classify instead of
// re-inspecting driver errors.
package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mijinummi/Lumenpulse/core"
)

const uniqueViolation = "23505"

// classify wraps a driver error in the matching core sentinel. Anything
// that is neither a missing row nor a constraint violation is treated as
// transient.
func classify(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, core.ErrConflict)
	}

	return fmt.Errorf("%s: %v: %w", op, err, core.ErrUnavailable)
}
