// Package main implements mockhttp, a local stand-in for a text generation
// endpoint. POST /generate answers {"data":{"text":"[MOCK] <prompt>"},"echo":"<raw body>"},
// which matches the generic_http adapter's example configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/phrazzld/prompttick/internal/platform/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	addr := pflag.String("addr", "127.0.0.1:8787", "listen address")
	pflag.Parse()

	log := logger.New(os.Stdout, slog.LevelInfo).With("component", "mockhttp")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, log, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "mockhttp: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, log *slog.Logger, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           newRouter(log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("mock server listening", "url", "http://"+addr+"/generate")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("stopping mock server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
