package generation

import (
	"errors"
	"fmt"
)

// Error categories. Every error produced by an adapter wraps exactly one of
// these so callers can classify failures with errors.Is.
var (
	// ErrConfiguration is returned when adapter settings are missing or invalid
	ErrConfiguration = errors.New("adapter configuration error")

	// ErrTransport is returned for network failures and request timeouts
	ErrTransport = errors.New("transport error")

	// ErrProtocol is returned for unexpected statuses and malformed responses
	ErrProtocol = errors.New("protocol error")

	// ErrResource is returned when a credential, file or variable is unavailable
	ErrResource = errors.New("resource error")

	// ErrExecution is returned when a local process fails
	ErrExecution = errors.New("execution error")

	// ErrUnknownAdapter is returned by the factory for unrecognised adapter names
	ErrUnknownAdapter = errors.New("unknown adapter")
)

// Specific failures, each wrapping its category.
var (
	ErrMissingEnvVar     = fmt.Errorf("%w: environment variable not set", ErrResource)
	ErrMissingCredential = fmt.Errorf("%w: credential not set", ErrResource)
	ErrMissingOutput     = fmt.Errorf("%w: expected output file not found", ErrResource)

	ErrBodyParse = fmt.Errorf("%w: request body is not valid JSON", ErrConfiguration)

	ErrHTTPStatus    = fmt.Errorf("%w: unexpected HTTP status", ErrProtocol)
	ErrResponseParse = fmt.Errorf("%w: response body is not valid JSON", ErrProtocol)
	ErrPointer       = fmt.Errorf("%w: response pointer did not resolve", ErrProtocol)
	ErrEmptyResponse = fmt.Errorf("%w: response contained no text", ErrProtocol)

	ErrTimeout     = fmt.Errorf("%w: timed out", ErrExecution)
	ErrLaunch      = fmt.Errorf("%w: failed to launch process", ErrExecution)
	ErrNonZeroExit = fmt.Errorf("%w: process exited with non-zero status", ErrExecution)
	ErrEmptyOutput = fmt.Errorf("%w: process produced no output", ErrExecution)
)
