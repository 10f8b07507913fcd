// Package scan discovers prompt files in the input directory and orders them
// for processing.
package scan

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Orderings.
const (
	OrderByName  = "name"
	OrderByMtime = "mtime"
)

// partialSuffixes mark files that are still being written by another process.
var partialSuffixes = []string{".part", ".lock", ".tmp"}

// CandidateFile is a prompt file eligible for processing in this round.
type CandidateFile struct {
	Path    string // absolute
	Name    string
	Size    int64
	ModTime time.Time
	Ext     string // lower-cased, with leading dot
}

// Scanner lists candidate files in a single directory.
type Scanner struct {
	dir        string
	extensions map[string]struct{}
	ordering   string
	logger     *slog.Logger
}

// NewScanner returns a scanner over dir accepting the given extensions
// (case-insensitive, with or without a leading dot). An unrecognised ordering
// falls back to name ordering with a warning.
func NewScanner(logger *slog.Logger, dir string, extensions []string, ordering string) *Scanner {
	logger = logger.With("component", "scanner")

	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}

	mode := strings.ToLower(strings.TrimSpace(ordering))
	switch mode {
	case OrderByName, OrderByMtime:
	default:
		logger.Warn("unknown ordering, falling back to name", "ordering", ordering)
		mode = OrderByName
	}

	return &Scanner{
		dir:        dir,
		extensions: exts,
		ordering:   mode,
		logger:     logger,
	}
}

// Ordering returns the effective ordering mode.
func (s *Scanner) Ordering() string { return s.ordering }

// Scan lists the directory non-recursively and returns the ordered candidates.
// A missing directory yields an empty list.
func (s *Scanner) Scan() ([]CandidateFile, error) {
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input dir %q: %w", s.dir, err)
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("input dir does not exist", "dir", dir)
		return []CandidateFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list input dir %q: %w", dir, err)
	}

	files := make([]CandidateFile, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !s.accepts(name) {
			continue
		}

		// Stat follows symlinks so a link to a regular file is a candidate.
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			// removed between listing and stat, or a dangling link
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		files = append(files, CandidateFile{
			Path:    path,
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Ext:     strings.ToLower(filepath.Ext(name)),
		})
	}

	s.sort(files)
	return files, nil
}

func (s *Scanner) accepts(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	_, ok := s.extensions[filepath.Ext(lower)]
	return ok
}

func (s *Scanner) sort(files []CandidateFile) {
	if s.ordering == OrderByMtime {
		sort.SliceStable(files, func(i, j int) bool {
			if !files[i].ModTime.Equal(files[j].ModTime) {
				return files[i].ModTime.Before(files[j].ModTime)
			}
			return NaturalLess(files[i].Name, files[j].Name)
		})
		return
	}
	sort.SliceStable(files, func(i, j int) bool {
		return NaturalLess(files[i].Name, files[j].Name)
	})
}
