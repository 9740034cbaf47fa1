package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TypeTaskSubmitted is emitted after a task row is persisted in pending
// state. The runner reacts by enqueueing the task for a worker.
const TypeTaskSubmitted = "task.submitted"

// TaskSubmittedPayload is the payload carried by TypeTaskSubmitted events.
type TaskSubmittedPayload struct {
	TaskID uuid.UUID `json:"task_id"`
	Tool   string    `json:"tool"`
}

// Event is a request for background work, carried from the service layer
// to whichever components subscribed. It holds the payload as JSON so
// emitters need no dependency on handler packages.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type selects how handlers interpret the payload
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event of the given type, serializing the payload
// to JSON.
func NewEvent(eventType string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Handler processes events. Implementations decide which event types
// they care about and ignore the rest.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// Emitter publishes events to registered handlers. Services emit through
// this interface without direct knowledge of who listens.
type Emitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
