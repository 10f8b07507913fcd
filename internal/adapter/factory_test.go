package adapter

import (
	"context"
	"testing"

	"github.com/phrazzld/prompttick/internal/config"
	"github.com/phrazzld/prompttick/internal/generation"
	"github.com/phrazzld/prompttick/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *config.Config {
	return &config.Config{
		GenericHTTP: config.GenericHTTPConfig{URL: "http://127.0.0.1:8787/generate"},
		Local:       config.LocalConfig{CommandTemplate: "fakelocal --in ${PROMPT_PATH}"},
	}
}

func TestNewResolvesNamesAndAliases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expected string
	}{
		{"echo", "echo"},
		{"ECHO", "echo"},
		{" generic_http ", "generic_http"},
		{"http", "generic_http"},
		{"openai", "openai"},
		{"OpenAI", "openai"},
		{"local", "local"},
		{"local_stub", "local"},
		{"gemini", "gemini"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gen, err := New(context.Background(), tc.name, validConfig(), logger.Discard())
			require.NoError(t, err)
			assert.Equal(t, tc.expected, gen.Name())
		})
	}
}

func TestNewUnknownAdapter(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "carrier-pigeon", validConfig(), logger.Discard())

	require.ErrorIs(t, err, generation.ErrUnknownAdapter)
	assert.Contains(t, err.Error(), "carrier-pigeon")
	assert.Contains(t, err.Error(), "generic_http")
}

func TestNewConfigurationErrors(t *testing.T) {
	t.Parallel()

	t.Run("generic http without url", func(t *testing.T) {
		t.Parallel()
		_, err := New(context.Background(), "http", &config.Config{}, logger.Discard())
		assert.ErrorIs(t, err, generation.ErrConfiguration)
	})

	t.Run("local without template", func(t *testing.T) {
		t.Parallel()
		_, err := New(context.Background(), "local", &config.Config{}, logger.Discard())
		assert.ErrorIs(t, err, generation.ErrConfiguration)
	})

	t.Run("nil arguments", func(t *testing.T) {
		t.Parallel()
		_, err := New(context.Background(), "echo", nil, logger.Discard())
		assert.Error(t, err)
		_, err = New(context.Background(), "echo", validConfig(), nil)
		assert.Error(t, err)
	})
}

func TestEchoNeedsNoConfiguration(t *testing.T) {
	t.Parallel()

	gen, err := New(context.Background(), "echo", &config.Config{}, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, "[ECHO PLACEHOLDER]\n\nPROMPT:\nhi", gen.Generate(context.Background(), "hi"))
}

func TestNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"echo", "gemini", "generic_http", "local", "openai"}, Names())

	name, ok := Canonical("LOCAL_STUB")
	assert.True(t, ok)
	assert.Equal(t, "local", name)

	_, ok = Canonical("")
	assert.False(t, ok)
}
