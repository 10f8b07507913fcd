package jsonptr

import "errors"

// Resolution errors. Every failure returned by Resolve wraps one of these.
var (
	// ErrInvalidPointer is returned when a non-empty pointer does not start with '/'.
	ErrInvalidPointer = errors.New("json pointer must start with '/'")

	// ErrIndex is returned when an array index is out of range.
	ErrIndex = errors.New("json pointer index out of range")

	// ErrToken is returned when an array is addressed with a non-numeric token or '-'.
	ErrToken = errors.New("json pointer token is not a valid array index")

	// ErrKeyMissing is returned when an object does not contain the addressed key.
	ErrKeyMissing = errors.New("json pointer key not found")

	// ErrNotIndexable is returned when traversal reaches a scalar before the pointer ends.
	ErrNotIndexable = errors.New("json pointer cannot traverse value")
)
