package telemetry

import (
	"sync"
	"time"
)

// Event types emitted during a matrix run.
const (
	EventRunStarted      = "run.started"
	EventRunCompleted    = "run.completed"
	EventConfigGenerated = "config.generated"
	EventConfigPassed    = "config.passed"
	EventConfigFailed    = "config.failed"
	EventCheckFailed     = "check.failed"
	EventEnvCreated      = "env.created"
	EventEnvRemoved      = "env.removed"
)

// Event is a progress notification from a matrix run.
type Event struct {
	Type      string
	RunID     string
	EnvName   string
	Message   string
	Timestamp time.Time
}

// EventHandler receives events synchronously. Handlers must not block.
type EventHandler func(Event)

// Events fans progress notifications out to registered handlers. Publishing
// with no handlers is a no-op, so library callers pay nothing when the CLI
// does not subscribe.
type Events struct {
	mu       sync.RWMutex
	handlers []EventHandler
}

// NewEvents creates an empty event publisher.
func NewEvents() *Events {
	return &Events{}
}

// Subscribe registers a handler for all subsequent events.
func (e *Events) Subscribe(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
}

// Publish delivers an event to every handler. The timestamp is filled in
// if the caller left it zero.
func (e *Events) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	e.mu.RLock()
	handlers := e.handlers
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
