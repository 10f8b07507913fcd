package batch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedWriter(dir string, t time.Time) *OutputWriter {
	w := NewOutputWriter(dir)
	w.now = func() time.Time { return t }
	return w
}

func TestOutputName(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 9, 7, 5, 1, 0, time.Local)
	assert.Equal(t, "20240309-070501_prompt.txt.out.txt", Name("prompt.txt", at))
}

func TestOutputWriterAddsSuffixOnCollision(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := fixedWriter(dir, time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local))

	first, err := w.Write("a.txt", "one")
	require.NoError(t, err)
	second, err := w.Write("a.txt", "two")
	require.NoError(t, err)
	third, err := w.Write("a.txt", "three")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "20240102-030405_a.txt.out.txt"), first)
	assert.Equal(t, filepath.Join(dir, "20240102-030405_a.txt_1.out.txt"), second)
	assert.Equal(t, filepath.Join(dir, "20240102-030405_a.txt_2.out.txt"), third)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data), "existing outputs are never overwritten")
}

func TestOutputWriterKeepsUnicode(t *testing.T) {
	t.Parallel()

	w := NewOutputWriter(t.TempDir())
	path, err := w.Write("é.txt", "héllo ✓")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "héllo ✓", string(data))
}

func TestOutputWriterFailsOnUnwritableDir(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewOutputWriter(filepath.Join(blocker, "out")).Write("a.txt", "x")
	assert.ErrorIs(t, err, ErrWriteOutput)
}
