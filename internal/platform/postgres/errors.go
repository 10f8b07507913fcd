package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/phrazzld/prompttick/internal/state"
)

const (
	undefinedTableCode   = "42P01"
	insufficientPrivCode = "42501"
)

// mapError wraps a failed write as state.ErrPersist, naming the PostgreSQL
// condition when one is recognised.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case undefinedTableCode:
			return fmt.Errorf("%w: %s: table missing, were migrations applied? (%s)", state.ErrPersist, op, pgErr.Message)
		case insufficientPrivCode:
			return fmt.Errorf("%w: %s: permission denied (%s)", state.ErrPersist, op, pgErr.Message)
		default:
			return fmt.Errorf("%w: %s: %s (SQLSTATE %s)", state.ErrPersist, op, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("%w: %s: %v", state.ErrPersist, op, err)
}
