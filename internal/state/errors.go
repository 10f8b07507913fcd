package state

import "errors"

// ErrPersist is returned when the processed set cannot be written.
var ErrPersist = errors.New("failed to persist state")
