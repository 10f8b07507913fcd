package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/prompttick/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessingStateIsIdempotent(t *testing.T) {
	t.Parallel()

	s := New("/in/b.txt", "/in/a.txt")
	s.Add("/in/a.txt")
	s.Add("/in/a.txt")
	s.Add("")

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("/in/a.txt"))
	assert.False(t, s.Has("/in/c.txt"))
	assert.Equal(t, []string{"/in/a.txt", "/in/b.txt"}, s.Paths())

	var zero ProcessingState
	zero.Add("/x")
	assert.True(t, zero.Has("/x"))
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewFileStore(logger.Discard(), path)

	require.NoError(t, store.Save(ctx, New("/in/z.txt", "/in/a.txt")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"processed\": [\n    \"/in/a.txt\",\n    \"/in/z.txt\"\n  ]\n}\n", string(data))

	loaded := store.Load(ctx)
	assert.Equal(t, []string{"/in/a.txt", "/in/z.txt"}, loaded.Paths())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStoreLoadNeverFails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content *string
	}{
		{"missing file", nil},
		{"malformed json", ptr("{not json")},
		{"wrong shape", ptr(`{"processed": "nope"}`)},
		{"empty file", ptr("")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "state.json")
			if tc.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tc.content), 0o600))
			}

			log, _ := logger.GetTestLogger(t)
			loaded := NewFileStore(log, path).Load(context.Background())

			require.NotNil(t, loaded)
			assert.Zero(t, loaded.Len())
		})
	}
}

func TestFileStoreReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(logger.Discard(), path)
	require.NoError(t, store.Save(ctx, New("/in/a.txt")))

	require.NoError(t, store.Reset(ctx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.NotNil(t, doc.Processed, "an empty set is written as []")
	assert.Empty(t, doc.Processed)
}

func TestFileStoreEnsure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(logger.Discard(), path)

	require.NoError(t, store.Ensure(ctx))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"processed": []}`, string(data))

	require.NoError(t, store.Save(ctx, New("/in/a.txt")))
	require.NoError(t, store.Ensure(ctx))
	assert.Equal(t, 1, store.Load(ctx).Len(), "existing state is kept")
}

func TestFileStoreSaveFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store := NewFileStore(logger.Discard(), filepath.Join(blocker, "state.json"))
	err := store.Save(context.Background(), New("/in/a.txt"))

	assert.ErrorIs(t, err, ErrPersist)
}

func ptr(s string) *string { return &s }
