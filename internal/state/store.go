package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Store persists a ProcessingState.
type Store interface {
	// Load returns the persisted state. It never fails: missing, unreadable
	// or malformed data is logged and replaced by an empty state.
	Load(ctx context.Context) *ProcessingState

	// Save replaces the persisted state with s.
	Save(ctx context.Context, s *ProcessingState) error

	// Reset replaces the persisted state with an empty one.
	Reset(ctx context.Context) error
}

// document is the on-disk shape of the state file.
type document struct {
	Processed []string `json:"processed"`
}

// FileStore keeps the state as pretty-printed JSON in a single file.
type FileStore struct {
	path   string
	logger *slog.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by the file at path.
func NewFileStore(logger *slog.Logger, path string) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With("component", "state"),
	}
}

// Path returns the state file location.
func (f *FileStore) Path() string { return f.path }

// Load implements Store.
func (f *FileStore) Load(ctx context.Context) *ProcessingState {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return New()
	}
	if err != nil {
		f.logger.WarnContext(ctx, "state file unreadable, starting empty", "path", f.path, "error", err)
		return New()
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		f.logger.WarnContext(ctx, "state file malformed, starting empty", "path", f.path, "error", err)
		return New()
	}
	return New(doc.Processed...)
}

// Save implements Store. The file is replaced atomically.
func (f *FileStore) Save(ctx context.Context, s *ProcessingState) error {
	if s == nil {
		s = New()
	}

	data, err := json.MarshalIndent(document{Processed: s.Paths()}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := writeAtomic(f.path, append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	f.logger.DebugContext(ctx, "state saved", "path", f.path, "processed", s.Len())
	return nil
}

// Reset implements Store.
func (f *FileStore) Reset(ctx context.Context) error {
	if err := f.Save(ctx, New()); err != nil {
		return err
	}
	f.logger.InfoContext(ctx, "state reset", "path", f.path)
	return nil
}

// Ensure creates the state file with an empty set when it does not exist.
func (f *FileStore) Ensure(ctx context.Context) error {
	if _, err := os.Stat(f.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return f.Save(ctx, New())
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
