package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	// OutputSuffix ends every output file name.
	OutputSuffix = ".out.txt"

	// TimestampLayout prefixes output names, local time.
	TimestampLayout = "20060102-150405"

	maxCollisions = 10000
)

// OutputWriter creates output files named <timestamp>_<prompt-name>.out.txt.
// Existing files are never overwritten: a numeric suffix is appended to the
// name instead.
type OutputWriter struct {
	dir string
	now func() time.Time
}

// NewOutputWriter returns a writer into dir.
func NewOutputWriter(dir string) *OutputWriter {
	return &OutputWriter{dir: dir, now: time.Now}
}

// Name returns the base output name for a prompt file named promptName at t.
func Name(promptName string, t time.Time) string {
	return t.Format(TimestampLayout) + "_" + promptName + OutputSuffix
}

// Write stores content for promptName and returns the created path.
func (w *OutputWriter) Write(promptName, content string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}

	stem := w.now().Format(TimestampLayout) + "_" + promptName
	for i := 0; i < maxCollisions; i++ {
		name := stem + OutputSuffix
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, i, OutputSuffix)
		}
		path := filepath.Join(w.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}

		if _, err := f.WriteString(content); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: too many outputs named %s in %s", ErrWriteOutput, stem, w.dir)
}
