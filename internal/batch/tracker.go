package batch

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultTrackedPaths bounds the number of failing paths remembered.
const DefaultTrackedPaths = 1024

// FailureTracker counts consecutive failures per path. With a positive
// threshold, a path that reaches it is quarantined until Reset. Counts live
// in a bounded LRU, so the least recently failing paths are forgotten first.
type FailureTracker struct {
	threshold int
	counts    *lru.Cache[string, int]
}

// NewFailureTracker returns a tracker. threshold 0 disables quarantine;
// size <= 0 uses DefaultTrackedPaths.
func NewFailureTracker(threshold, size int) *FailureTracker {
	if size <= 0 {
		size = DefaultTrackedPaths
	}
	if threshold < 0 {
		threshold = 0
	}
	// lru.New fails only for a non-positive size
	counts, _ := lru.New[string, int](size)
	return &FailureTracker{threshold: threshold, counts: counts}
}

// Failure records a failure and returns the consecutive count and whether the
// path is now quarantined.
func (t *FailureTracker) Failure(path string) (int, bool) {
	n, _ := t.counts.Get(path)
	n++
	t.counts.Add(path, n)
	return n, t.threshold > 0 && n >= t.threshold
}

// Success clears the count for path.
func (t *FailureTracker) Success(path string) {
	t.counts.Remove(path)
}

// Quarantined reports whether path has reached the threshold.
func (t *FailureTracker) Quarantined(path string) bool {
	if t.threshold == 0 {
		return false
	}
	n, ok := t.counts.Peek(path)
	return ok && n >= t.threshold
}

// Count returns the current consecutive failure count for path.
func (t *FailureTracker) Count(path string) int {
	n, _ := t.counts.Peek(path)
	return n
}

// Reset forgets every count and releases all quarantined paths.
func (t *FailureTracker) Reset() {
	t.counts.Purge()
}
