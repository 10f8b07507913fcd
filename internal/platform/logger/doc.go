// Package logger configures structured JSON logging with log/slog.
//
// The application logger writes every record both to stdout and to run.log
// inside the configured log directory. Components receive the logger through
// their constructors; library code never relies on slog's default logger.
package logger
