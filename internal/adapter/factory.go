// Package adapter maps an adapter name from configuration to a ready
// generation.Generator.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/phrazzld/prompttick/internal/config"
	"github.com/phrazzld/prompttick/internal/generation"
	"github.com/phrazzld/prompttick/internal/platform/echo"
	"github.com/phrazzld/prompttick/internal/platform/gemini"
	"github.com/phrazzld/prompttick/internal/platform/httpgen"
	"github.com/phrazzld/prompttick/internal/platform/localcmd"
	"github.com/phrazzld/prompttick/internal/platform/openai"
)

type constructor func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (generation.Generator, error)

var constructors = map[string]constructor{
	"echo": func(context.Context, *config.Config, *slog.Logger) (generation.Generator, error) {
		return echo.NewGenerator(), nil
	},
	"generic_http": func(_ context.Context, cfg *config.Config, logger *slog.Logger) (generation.Generator, error) {
		return httpgen.NewGenerator(logger, cfg.GenericHTTP)
	},
	"openai": func(_ context.Context, cfg *config.Config, logger *slog.Logger) (generation.Generator, error) {
		return openai.NewGenerator(logger, cfg.OpenAI)
	},
	"local": func(_ context.Context, cfg *config.Config, logger *slog.Logger) (generation.Generator, error) {
		return localcmd.NewGenerator(logger, cfg.Local)
	},
	"gemini": func(_ context.Context, cfg *config.Config, logger *slog.Logger) (generation.Generator, error) {
		return gemini.NewGenerator(logger, cfg.Gemini)
	},
}

var aliases = map[string]string{
	"http":       "generic_http",
	"local_stub": "local",
}

// Names lists the canonical adapter names.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Canonical resolves aliases and case. It reports false for unknown names.
func Canonical(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if target, ok := aliases[key]; ok {
		key = target
	}
	_, ok := constructors[key]
	return key, ok
}

// New builds the generator registered under name. Unknown names fail with
// generation.ErrUnknownAdapter; invalid settings fail with
// generation.ErrConfiguration.
func New(ctx context.Context, name string, cfg *config.Config, logger *slog.Logger) (generation.Generator, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	key, ok := Canonical(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", generation.ErrUnknownAdapter, name, strings.Join(Names(), ", "))
	}

	gen, err := constructors[key](ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s adapter: %w", key, err)
	}

	logger.InfoContext(ctx, "adapter ready", "adapter", gen.Name())
	return gen, nil
}
