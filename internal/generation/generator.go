package generation

import (
	"context"
)

// Generator turns prompt text into generated text.
//
// Generate never returns an error and never panics on backend failures.
// A failed call yields a diagnostic text value instead, recognisable with
// IsErrorText, so a caller can decide whether to keep or discard the result.
type Generator interface {
	// Name returns the adapter name the generator was registered under.
	Name() string

	// Generate produces text for prompt.
	Generate(ctx context.Context, prompt string) string
}
