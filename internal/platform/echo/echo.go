// Package echo provides the baseline generator: it returns the prompt
// unchanged behind a fixed marker and never fails.
package echo

import (
	"context"
)

// Marker precedes the echoed prompt.
const Marker = "[ECHO PLACEHOLDER]\n\nPROMPT:\n"

// Generator implements generation.Generator by echoing the prompt.
type Generator struct{}

// NewGenerator returns an echo generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Name implements generation.Generator.
func (g *Generator) Name() string { return "echo" }

// Generate implements generation.Generator.
func (g *Generator) Generate(_ context.Context, prompt string) string {
	return Marker + prompt
}
