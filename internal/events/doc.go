// Package events carries notifications about processed prompt files.
//
// The orchestrator emits an Event for every file outcome and at the end of
// each round. Handlers (for example the object-storage mirror) subscribe to an
// Emitter and run synchronously; a failing handler is logged and never fails
// the round that emitted the event.
package events
