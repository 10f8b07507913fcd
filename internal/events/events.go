package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeFileProcessed  = "file.processed"
	TypeFileSkipped    = "file.skipped"
	TypeFileFailed     = "file.failed"
	TypeRoundCompleted = "round.completed"
)

// Event describes one outcome of a processing round.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// RunID identifies the round that produced the event
	RunID uuid.UUID `json:"run_id"`

	// Path is the prompt file, empty for round events
	Path string `json:"path,omitempty"`

	// OutputPath is the written output file for file.processed
	OutputPath string `json:"output_path,omitempty"`

	// Error is the failure text for file.failed
	Error string `json:"error,omitempty"`

	// Processed is the number of files written, for round.completed
	Processed int `json:"processed,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// New returns an event of the given type for run.
func New(eventType string, run uuid.UUID) *Event {
	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		RunID:     run,
		CreatedAt: time.Now(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}
