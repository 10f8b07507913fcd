package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/prompttick/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventHandler records the events it receives.
type MockEventHandler struct {
	HandledCount int
	LastEvent    *Event
	HandlerError error
}

func (m *MockEventHandler) HandleEvent(_ context.Context, event *Event) error {
	m.HandledCount++
	m.LastEvent = event
	return m.HandlerError
}

func TestNewEvent(t *testing.T) {
	t.Parallel()

	run := uuid.New()
	a := New(TypeFileProcessed, run)
	b := New(TypeFileProcessed, run)

	assert.Equal(t, TypeFileProcessed, a.Type)
	assert.Equal(t, run, a.RunID)
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	t.Run("emit event with no handlers", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger.Discard())
		assert.NoError(t, emitter.EmitEvent(context.Background(), New(TypeRoundCompleted, uuid.New())))
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger.Discard())
		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := New(TypeFileProcessed, uuid.New())
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Same(t, event, handler1.LastEvent)
		assert.Same(t, event, handler2.LastEvent)
	})

	t.Run("failing handler does not stop dispatch", func(t *testing.T) {
		t.Parallel()
		log, buf := logger.GetTestLogger(t)
		emitter := NewInMemoryEventEmitter(log)

		failing := &MockEventHandler{HandlerError: errors.New("handler error")}
		after := &MockEventHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(after)

		event := New(TypeFileFailed, uuid.New())
		event.Path = "/in/a.txt"
		err := emitter.EmitEvent(context.Background(), event)

		assert.EqualError(t, err, "handler error")
		assert.Equal(t, 1, after.HandledCount)
		logger.AssertLogContains(t, buf, "handler failed to process event")
		logger.AssertLogField(t, buf, "path", "/in/a.txt")
	})

	t.Run("panicking handler is recovered", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger.Discard())
		emitter.RegisterHandler(HandlerFunc(func(context.Context, *Event) error { panic("boom") }))
		after := &MockEventHandler{}
		emitter.RegisterHandler(after)

		err := emitter.EmitEvent(context.Background(), New(TypeFileProcessed, uuid.New()))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.Equal(t, 1, after.HandledCount)
	})
}
