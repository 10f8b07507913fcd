package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWritesPrefixedPrompt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "input.prompt.txt")
	out := filepath.Join(dir, "answer.txt")
	require.NoError(t, os.WriteFile(in, []byte("héllo\nworld"), 0o644))

	require.NoError(t, run([]string{"--in", in, "--out", out}, &bytes.Buffer{}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "[LOCAL FAKE]\nhéllo\nworld", string(data))
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	assert.Error(t, run([]string{"--in", filepath.Join(dir, "x")}, &bytes.Buffer{}))
	assert.Error(t, run([]string{"--in", filepath.Join(dir, "missing"), "--out", filepath.Join(dir, "o")}, &bytes.Buffer{}))
	assert.Error(t, run([]string{"--nope"}, &bytes.Buffer{}))
}
