package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/prompttick/internal/generation"
)

var _ generation.Generator = (*MockGenerator)(nil)

// MockGenerator implements generation.Generator for testing.
type MockGenerator struct {
	// NameValue is returned by Name, "mock" when empty
	NameValue string

	// GenerateFn allows test cases to mock the Generate behavior
	GenerateFn func(ctx context.Context, prompt string) string

	// Response is returned when GenerateFn is nil
	Response string

	// Responses maps a prompt to its reply and takes precedence over Response
	Responses map[string]string

	mu      sync.Mutex
	prompts []string
}

// NewMockGenerator returns a generator that always replies with response.
func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{Response: response}
}

// NewFailingGenerator returns a generator that always replies with a
// diagnostic built from message.
func NewFailingGenerator(message string) *MockGenerator {
	return &MockGenerator{Response: generation.ErrorPrefix + " " + message}
}

// Name implements generation.Generator.
func (m *MockGenerator) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// Generate implements generation.Generator.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) string {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, prompt)
	}
	if reply, ok := m.Responses[prompt]; ok {
		return reply
	}
	return m.Response
}

// Calls returns how many times Generate was called.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns the prompts passed to Generate, in call order.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
