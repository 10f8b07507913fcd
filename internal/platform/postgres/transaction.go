package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// txFn runs inside a transaction that is committed when it returns nil.
type txFn func(ctx context.Context, tx *sql.Tx) error

// runInTransaction executes fn in a transaction, rolling back on error or
// panic. Panics are re-raised after the rollback.
func runInTransaction(ctx context.Context, logger *slog.Logger, db *sql.DB, fn txFn) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		logger.ErrorContext(ctx, "failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if txErr := tx.Rollback(); txErr != nil {
				logger.ErrorContext(ctx, "failed to roll back transaction after panic",
					"error", txErr,
					"panic", p)
			} else {
				logger.ErrorContext(ctx, "rolled back transaction after panic", "panic", p)
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			logger.ErrorContext(ctx, "failed to roll back transaction",
				"rollback_error", rollbackErr,
				"original_error", err)
			return fmt.Errorf("error rolling back transaction: %v (original error: %w)", rollbackErr, err)
		}
		logger.DebugContext(ctx, "rolled back transaction due to error", "error", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.ErrorContext(ctx, "failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
