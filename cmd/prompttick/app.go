package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/phrazzld/prompttick/internal/adapter"
	"github.com/phrazzld/prompttick/internal/batch"
	"github.com/phrazzld/prompttick/internal/config"
	"github.com/phrazzld/prompttick/internal/events"
	"github.com/phrazzld/prompttick/internal/generation"
	"github.com/phrazzld/prompttick/internal/platform/logger"
	"github.com/phrazzld/prompttick/internal/platform/objstore"
	"github.com/phrazzld/prompttick/internal/platform/postgres"
	"github.com/phrazzld/prompttick/internal/redact"
	"github.com/phrazzld/prompttick/internal/scan"
	"github.com/phrazzld/prompttick/internal/state"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const dotEnvFile = ".env"

// application holds the wired components of one process.
type application struct {
	cfg     *config.Config
	logger  *slog.Logger
	orch    *batch.Orchestrator
	closers []io.Closer
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.logger != nil {
			a.logger.Warn("failed to release resource", "error", err)
		}
	}
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "prompttick: %v\n", err)
		return 1
	}

	app, err := bootstrap(ctx, opts)
	if app != nil {
		defer app.Close()
	}
	if err != nil {
		fmt.Fprintf(stderr, "prompttick: startup failed: %s\n", redact.Error(err))
		if app != nil && app.logger != nil {
			app.logger.Error("startup failed", "error", redact.Error(err))
		}
		return 1
	}

	if err := execute(ctx, app, opts, stdout); err != nil {
		app.logger.Error("run failed", "error", redact.Error(err))
		fmt.Fprintf(stderr, "prompttick: %s\n", redact.Error(err))
		return 1
	}
	return 0
}

// execute performs the action selected by the flags on a wired application.
func execute(ctx context.Context, app *application, opts options, stdout io.Writer) error {
	if opts.rescan {
		if err := app.orch.Rescan(ctx); err != nil {
			return err
		}
	}

	switch {
	case opts.dryRun:
		files, err := app.orch.DryRun(ctx, opts.limit)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintln(stdout, f.Path)
		}
		app.logger.InfoContext(ctx, "dry run complete", "pending", len(files))
		return nil
	case opts.once:
		n, err := app.orch.RunOnce(ctx, opts.limit)
		if err != nil {
			return err
		}
		app.logger.InfoContext(ctx, "single round finished", "processed", n)
		return nil
	default:
		return app.orch.Loop(ctx, generation.Seconds(app.cfg.IntervalSeconds), opts.limit)
	}
}

// bootstrap loads configuration and wires every component. A non-nil
// application is returned whenever some resources were acquired, even on
// error, so the caller can release them.
func bootstrap(ctx context.Context, opts options) (*application, error) {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.adapter != "" {
		cfg.Adapter = strings.ToLower(strings.TrimSpace(opts.adapter))
	}
	if err := expandPaths(cfg); err != nil {
		return nil, err
	}

	log, logFile, err := logger.Setup(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	app := &application{cfg: cfg, logger: log, closers: []io.Closer{logFile}}

	if err := ensureDirs(cfg); err != nil {
		return app, err
	}

	store, err := openStore(ctx, app)
	if err != nil {
		return app, err
	}

	logBoot(ctx, log, cfg, opts.configPath)

	gen, err := adapter.New(ctx, cfg.Adapter, cfg, log)
	if err != nil {
		return app, err
	}

	emitter := events.NewInMemoryEventEmitter(log)
	if cfg.OutputMirror.Enabled {
		mirror, err := objstore.New(log, cfg.OutputMirror)
		if err != nil {
			return app, fmt.Errorf("failed to set up output mirror: %w", err)
		}
		emitter.RegisterHandler(mirror)
	}

	scanner := scan.NewScanner(log, cfg.InputDir, cfg.FileExtensions, cfg.Ordering)
	app.orch, err = batch.New(log, gen, scanner, store, emitter, batch.Options{
		OutputDir:              cfg.OutputDir,
		BatchSize:              cfg.EffectiveBatchSize(),
		MaxConsecutiveFailures: cfg.FailurePolicy.MaxConsecutiveFailures,
		TrackedPaths:           cfg.FailurePolicy.TrackedPaths,
	})
	if err != nil {
		return app, err
	}
	return app, nil
}

// loadDotEnv loads path into the environment when it exists. Variables that
// are already set win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// expandPaths resolves a leading ~ in every configured path.
func expandPaths(cfg *config.Config) error {
	for _, p := range []*string{&cfg.InputDir, &cfg.OutputDir, &cfg.LogDir, &cfg.StatePath} {
		expanded, err := expandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

func ensureDirs(cfg *config.Config) error {
	for _, dir := range []string{cfg.InputDir, cfg.OutputDir, cfg.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// openStore returns the configured state backend, ready for use.
func openStore(ctx context.Context, app *application) (state.Store, error) {
	cfg := app.cfg
	if cfg.State.Backend == "postgres" {
		store, err := postgres.Open(ctx, app.logger, cfg.State.DatabaseURL, cfg.State.TableName)
		if err != nil {
			return nil, fmt.Errorf("failed to open state database: %w", err)
		}
		app.closers = append(app.closers, store)
		return store, nil
	}

	store := state.NewFileStore(app.logger, cfg.StatePath)
	if err := store.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialise state file: %w", err)
	}
	return store, nil
}

func logBoot(ctx context.Context, log *slog.Logger, cfg *config.Config, configPath string) {
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}
	log.InfoContext(ctx, "prompttick starting",
		"version", version,
		"go_version", runtime.Version(),
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
	)
	log.InfoContext(ctx, "configuration loaded",
		"config", configPath,
		"input_dir", cfg.InputDir,
		"output_dir", cfg.OutputDir,
		"log_dir", cfg.LogDir,
		"state_backend", cfg.State.Backend,
		"state_path", cfg.StatePath,
		"log_level", cfg.LogLevel,
		"adapter", cfg.Adapter,
		"batch_size", cfg.EffectiveBatchSize(),
		"interval_seconds", cfg.IntervalSeconds,
		"output_mirror", cfg.OutputMirror.Enabled,
	)
}
