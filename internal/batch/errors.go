package batch

import "errors"

var (
	// ErrGeneration marks a generator reply that is a diagnostic rather than content
	ErrGeneration = errors.New("generation failed")

	// ErrReadPrompt is returned when a prompt file cannot be read
	ErrReadPrompt = errors.New("failed to read prompt")

	// ErrWriteOutput is returned when an output file cannot be written
	ErrWriteOutput = errors.New("failed to write output")

	// ErrPanic marks a file whose processing panicked
	ErrPanic = errors.New("processing panicked")
)
