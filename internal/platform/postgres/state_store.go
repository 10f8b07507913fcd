package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx driver for database/sql

	"github.com/phrazzld/prompttick/internal/redact"
	"github.com/phrazzld/prompttick/internal/state"
)

const pingTimeout = 5 * time.Second

// StateStore implements state.Store on the processed_files table.
type StateStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ state.Store = (*StateStore)(nil)

// NewStateStore wraps an open database whose schema is already migrated.
func NewStateStore(logger *slog.Logger, db *sql.DB) *StateStore {
	return &StateStore{
		db:     db,
		logger: logger.With("component", "state", "backend", "postgres"),
	}
}

// Open connects to dsn, verifies connectivity and applies migrations.
func Open(ctx context.Context, logger *slog.Logger, dsn, versionTable string) (*StateStore, error) {
	logger.InfoContext(ctx, "opening state database", "url", redact.DSN(dsn))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(ctx, logger, db, versionTable); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewStateStore(logger, db), nil
}

// Close releases the database handle.
func (s *StateStore) Close() error {
	return s.db.Close()
}

// Load implements state.Store.
func (s *StateStore) Load(ctx context.Context) *state.ProcessingState {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM processed_files`)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load state, starting empty", "error", err)
		return state.New()
	}
	defer rows.Close()

	loaded := state.New()
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			s.logger.WarnContext(ctx, "failed to scan state row, starting empty", "error", err)
			return state.New()
		}
		loaded.Add(path)
	}
	if err := rows.Err(); err != nil {
		s.logger.WarnContext(ctx, "failed to read state rows, starting empty", "error", err)
		return state.New()
	}
	return loaded
}

// Save implements state.Store. Rows for paths no longer in the set are
// removed; existing rows keep their original processed_at.
func (s *StateStore) Save(ctx context.Context, ps *state.ProcessingState) error {
	if ps == nil {
		ps = state.New()
	}
	paths := ps.Paths()

	err := runInTransaction(ctx, s.logger, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM processed_files WHERE NOT (path = ANY($1))`, paths); err != nil {
			return mapError("prune", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO processed_files (path, processed_at) VALUES ($1, NOW())
			 ON CONFLICT (path) DO NOTHING`)
		if err != nil {
			return mapError("prepare insert", err)
		}
		defer stmt.Close()

		for _, p := range paths {
			if _, err := stmt.ExecContext(ctx, p); err != nil {
				return mapError("insert", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "state saved", "processed", len(paths))
	return nil
}

// Reset implements state.Store.
func (s *StateStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM processed_files`); err != nil {
		return mapError("reset", err)
	}
	s.logger.InfoContext(ctx, "state reset")
	return nil
}
