// Package state tracks which prompt files have already been handled and
// persists that set between rounds.
package state

import (
	"sort"
)

// ProcessingState is the set of absolute paths already handled, including
// files skipped because they were empty. Adding a path twice is a no-op.
type ProcessingState struct {
	processed map[string]struct{}
}

// New returns a state holding paths.
func New(paths ...string) *ProcessingState {
	s := &ProcessingState{processed: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add marks path as processed.
func (s *ProcessingState) Add(path string) {
	if path == "" {
		return
	}
	if s.processed == nil {
		s.processed = make(map[string]struct{})
	}
	s.processed[path] = struct{}{}
}

// Has reports whether path has been processed.
func (s *ProcessingState) Has(path string) bool {
	_, ok := s.processed[path]
	return ok
}

// Len returns the number of processed paths.
func (s *ProcessingState) Len() int { return len(s.processed) }

// Paths returns the processed paths in sorted order.
func (s *ProcessingState) Paths() []string {
	out := make([]string, 0, len(s.processed))
	for p := range s.processed {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
