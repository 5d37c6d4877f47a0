package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the ingestion and collection services.
const (
	DocumentIngested  = "document.ingested"
	DocumentFailed    = "document.failed"
	DocumentDeleted   = "document.deleted"
	CollectionDeleted = "collection.deleted"
)

// Payload keys shared by all RAG events.
const (
	KeyCollectionName = "collection_name"
	KeyDocumentID     = "document_id"
	KeyUserID         = "user_id"
	KeyChunkCount     = "chunk_count"
	KeyError          = "error"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "document.ingested").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now().UTC()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Envelope is the wire form of an event on both buses. Source names the
// instance that published it.
type Envelope struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Source     string                 `json:"source"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e Envelope) EventType() string {
	return e.Type
}

func (e Envelope) Payload() map[string]interface{} {
	return e.Data
}

func (e Envelope) Timestamp() time.Time {
	return e.OccurredAt
}

func Encode(event Event, source string) ([]byte, error) {
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       event.EventType(),
		Source:     source,
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	return data, nil
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("event has no type")
	}
	return env, nil
}

// StringField reads a string payload value, tolerating absent keys.
func StringField(event Event, key string) string {
	v, _ := event.Payload()[key].(string)
	return v
}
