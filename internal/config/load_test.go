package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
input_dir: ./data/in
output_dir: ./data/out
log_dir: ./logs
state_path: ./data/state.json
file_extensions: [".txt", "MD"]
ordering: name
log_level: INFO
`

// writeConfig writes content to a config.yaml in a fresh temp dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "Failed to write config file")
	return path
}

// TestLoadDefaults verifies that omitted keys receive their documented defaults.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))

	require.NoError(t, err, "Load() should not return an error with a minimal file")
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.LogLevel, "log level is lower-cased")
	assert.Equal(t, []string{".txt", ".md"}, cfg.FileExtensions, "extensions are normalised")
	assert.Equal(t, "echo", cfg.Adapter)
	assert.Equal(t, 1, cfg.EffectiveBatchSize())

	assert.Equal(t, "POST", cfg.GenericHTTP.Method)
	assert.Equal(t, 60.0, cfg.GenericHTTP.Timeout)
	assert.Equal(t, 1, cfg.GenericHTTP.Retries.MaxAttempts)
	assert.Equal(t, 1.0, cfg.GenericHTTP.Retries.BackoffSeconds)

	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAI.Model)
	assert.Equal(t, 0.7, cfg.OpenAI.Temperature)
	assert.Equal(t, int64(800), cfg.OpenAI.MaxOutputTokens)
	assert.Equal(t, 3, cfg.OpenAI.MaxAttempts)
	assert.Equal(t, "OPENAI_API_KEY", cfg.OpenAI.APIKeyEnv)

	assert.Equal(t, "cmd", cfg.Local.Engine)
	assert.Equal(t, 120.0, cfg.Local.TimeoutSeconds)
	assert.Equal(t, "stdout", cfg.Local.OutputMode)
	assert.Equal(t, ".out.txt", cfg.Local.OutSuffix)

	assert.Equal(t, "file", cfg.State.Backend)
	assert.False(t, cfg.OutputMirror.Enabled)
	assert.Equal(t, 0, cfg.FailurePolicy.MaxConsecutiveFailures)
	assert.Equal(t, 1024, cfg.FailurePolicy.TrackedPaths)
}

// TestLoadAdapterSections verifies nested adapter sections decode into typed structs.
func TestLoadAdapterSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
adapter: Generic_HTTP
batch_size: 4
generic_http:
  url: http://127.0.0.1:8787/generate
  headers:
    Content-Type: application/json
    Authorization: "Bearer ${ENV:TOKEN}"
  body_template: '{"prompt": "${PROMPT}"}'
  response_json_pointer: /data/text
  retries:
    max_attempts: 3
    backoff_seconds: 0.5
    retry_on_status: [429, 503]
local:
  command_template: "python fake.py --in ${PROMPT_PATH}"
  args: ["--temp", "0.1"]
  env:
    LLM_HOME: /opt/llm
  output_mode: FILE
`))

	require.NoError(t, err)
	assert.Equal(t, "generic_http", cfg.Adapter)
	assert.Equal(t, 4, cfg.EffectiveBatchSize())
	assert.Equal(t, "/data/text", cfg.GenericHTTP.ResponseJSONPointer)
	assert.Equal(t, []int{429, 503}, cfg.GenericHTTP.Retries.RetryOnStatus)
	assert.Equal(t, 0.5, cfg.GenericHTTP.Retries.BackoffSeconds)
	// viper lower-cases map keys
	assert.Equal(t, "application/json", cfg.GenericHTTP.Headers["content-type"])
	assert.Equal(t, []string{"--temp", "0.1"}, cfg.Local.Args)
	assert.Equal(t, "/opt/llm", cfg.Local.Env["llm_home"])
	assert.Equal(t, "file", cfg.Local.OutputMode)
}

// TestLoadFromEnv verifies that environment variables override file values.
func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PROMPTTICK_LOG_LEVEL", "warning")
	t.Setenv("PROMPTTICK_BATCH_SIZE", "7")
	t.Setenv("PROMPTTICK_OPENAI_MODEL", "gpt-4o")
	t.Setenv("PROMPTTICK_INPUT_DIR", "/env/in")

	cfg, err := Load(writeConfig(t, minimalYAML))

	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel, "warning is accepted as warn")
	assert.Equal(t, 7, cfg.BatchSize)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, "/env/in", cfg.InputDir)
}

// TestLoadValidationErrors verifies that invalid configuration is rejected.
func TestLoadValidationErrors(t *testing.T) {
	testCases := []struct {
		name           string
		content        string
		errorSubstring string
	}{
		{
			name: "missing required keys",
			content: `
input_dir: ./in
log_level: info
file_extensions: [".txt"]
`,
			errorSubstring: "OutputDir",
		},
		{
			name: "invalid log level",
			content: `
input_dir: ./in
output_dir: ./out
log_dir: ./logs
state_path: ./state.json
file_extensions: [".txt"]
ordering: name
log_level: loud
`,
			errorSubstring: "LogLevel",
		},
		{
			name: "empty extension list",
			content: `
input_dir: ./in
output_dir: ./out
log_dir: ./logs
state_path: ./state.json
file_extensions: []
ordering: name
log_level: info
`,
			errorSubstring: "FileExtensions",
		},
		{
			name:           "postgres backend without url",
			content:        minimalYAML + "state:\n  backend: postgres\n",
			errorSubstring: "DatabaseURL",
		},
		{
			name:           "mirror without bucket",
			content:        minimalYAML + "output_mirror:\n  enabled: true\n  endpoint: localhost:9000\n",
			errorSubstring: "Bucket",
		},
		{
			name:           "unknown local output mode",
			content:        minimalYAML + "local:\n  output_mode: socket\n",
			errorSubstring: "OutputMode",
		},
		{
			name:           "malformed yaml",
			content:        "input_dir: [unterminated\n",
			errorSubstring: "failed to read config file",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tc.content))

			require.Error(t, err, "Load() should return an error with invalid configuration")
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tc.errorSubstring, "Error message should contain expected substring")
			assert.Nil(t, cfg, "Config should be nil when an error occurs")
		})
	}
}

// TestLoadMissingFile verifies that a missing file is reported.
func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Nil(t, cfg)
}

// TestExampleConfigLoads keeps the shipped config.yaml valid.
func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "echo", cfg.Adapter)
	assert.Equal(t, "/data/text", cfg.GenericHTTP.ResponseJSONPointer)
	assert.Equal(t, []int{429, 500, 502, 503, 504}, cfg.GenericHTTP.Retries.RetryOnStatus)
	assert.Equal(t, "file", cfg.Local.OutputMode)
	assert.False(t, cfg.OutputMirror.Enabled)
}
