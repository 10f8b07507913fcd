package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/prompttick/internal/platform/echo"
)

// workspace is a temp directory laid out like a prompttick deployment.
type workspace struct {
	root       string
	in         string
	out        string
	statePath  string
	configPath string
}

func newWorkspace(t *testing.T, extra string) workspace {
	t.Helper()

	root := t.TempDir()
	ws := workspace{
		root:       root,
		in:         filepath.Join(root, "in"),
		out:        filepath.Join(root, "out"),
		statePath:  filepath.Join(root, "state", "state.json"),
		configPath: filepath.Join(root, "config.yaml"),
	}
	yaml := fmt.Sprintf(`
input_dir: %s
output_dir: %s
log_dir: %s
state_path: %s
file_extensions: [".txt"]
ordering: name
log_level: warning
batch_size: 10
adapter: echo
%s`, ws.in, ws.out, filepath.Join(root, "logs"), ws.statePath, extra)
	require.NoError(t, os.WriteFile(ws.configPath, []byte(yaml), 0o644))
	return ws
}

func (ws workspace) prompt(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(ws.in, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ws.in, name), []byte(content), 0o644))
}

func (ws workspace) processed(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(ws.statePath)
	require.NoError(t, err)
	var doc struct {
		Processed []string `json:"processed"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc.Processed
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunOnceWithEcho(t *testing.T) {
	ws := newWorkspace(t, "")
	ws.prompt(t, "a.txt", "hello")

	code, _, stderr := runCLI(t, "--config", ws.configPath, "--once")
	require.Equal(t, 0, code, stderr)

	entries, err := os.ReadDir(ws.out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_a.txt.out.txt"))

	data, err := os.ReadFile(filepath.Join(ws.out, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, echo.Marker+"hello", string(data))
	assert.Equal(t, []string{filepath.Join(ws.in, "a.txt")}, ws.processed(t))
	assert.FileExists(t, filepath.Join(ws.root, "logs", "run.log"))
}

func TestRunCreatesDirectoriesAndState(t *testing.T) {
	ws := newWorkspace(t, "")

	code, _, stderr := runCLI(t, "--config", ws.configPath, "--once")
	require.Equal(t, 0, code, stderr)

	assert.DirExists(t, ws.in)
	assert.DirExists(t, ws.out)
	assert.Empty(t, ws.processed(t))
}

func TestDryRunListsPendingFiles(t *testing.T) {
	ws := newWorkspace(t, "")
	ws.prompt(t, "file10.txt", "ten")
	ws.prompt(t, "file2.txt", "two")

	code, stdout, stderr := runCLI(t, "--config", ws.configPath, "--dry-run", "--limit", "1")
	require.Equal(t, 0, code, stderr)

	assert.Equal(t, filepath.Join(ws.in, "file2.txt")+"\n", stdout)
	_, err := os.Stat(ws.out)
	require.NoError(t, err)
	entries, err := os.ReadDir(ws.out)
	require.NoError(t, err)
	assert.Empty(t, entries, "dry run writes no output")
}

func TestRescanReprocesses(t *testing.T) {
	ws := newWorkspace(t, "")
	ws.prompt(t, "a.txt", "hello")

	code, _, stderr := runCLI(t, "--config", ws.configPath, "--once")
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI(t, "--config", ws.configPath, "--once", "--rescan")
	require.Equal(t, 0, code, stderr)

	entries, err := os.ReadDir(ws.out)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAdapterOverride(t *testing.T) {
	ws := newWorkspace(t, "")

	code, _, stderr := runCLI(t, "--config", ws.configPath, "--once", "--adapter", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "startup failed")
	assert.Contains(t, stderr, "nope")
}

func TestBootstrapFailures(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	code, _, stderr := runCLI(t, "--config", missing, "--once")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "failed to load configuration")

	ws := newWorkspace(t, "output_mirror:\n  enabled: true\n  endpoint: \"ftp://bad\"\n  bucket: b\n")
	code, _, stderr = runCLI(t, "--config", ws.configPath, "--once")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "output mirror")

	code, _, _ = runCLI(t, "--bogus")
	assert.Equal(t, 1, code)

	code, _, _ = runCLI(t, "extra-arg")
	assert.Equal(t, 1, code)
}

func TestHelp(t *testing.T) {
	code, _, stderr := runCLI(t, "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, "--dry-run")
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags(nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", opts.configPath)
	assert.Nil(t, opts.limit, "limit is unset unless given")
	assert.False(t, opts.once)

	opts, err = parseFlags([]string{"--limit", "0", "--once", "--adapter", "openai"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.NotNil(t, opts.limit)
	assert.Equal(t, 0, *opts.limit)
	assert.True(t, opts.once)
	assert.Equal(t, "openai", opts.adapter)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, loadDotEnv(path), "a missing file is not an error")

	require.NoError(t, os.WriteFile(path, []byte("PROMPTTICK_TEST_DOTENV=loaded\n"), 0o644))
	t.Setenv("PROMPTTICK_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("PROMPTTICK_TEST_DOTENV"))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("PROMPTTICK_TEST_DOTENV"))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandHome("~/prompts")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "prompts"), got)

	got, err = expandHome("/abs/~x")
	require.NoError(t, err)
	assert.Equal(t, "/abs/~x", got)
}
