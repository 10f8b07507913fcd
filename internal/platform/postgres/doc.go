// Package postgres provides a PostgreSQL implementation of state.Store.
// It opens the database through the pgx database/sql driver, applies the
// embedded goose migrations on startup and keeps one row per processed path.
package postgres
