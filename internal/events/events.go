package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/socialpulse/backend/internal/models"
)

// Broker topics consumed and produced by the services.
const (
	TopicUserCreated = "user.created"
	TopicPostCreated = "post.created"
)

// Envelope is the wire format carried on the bus. Payload schema depends on
// the topic.
type Envelope struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// UserCreated is the payload published on user.created.
type UserCreated struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// PostCreated is the payload published on post.created.
type PostCreated struct {
	ID       uint   `json:"id"`
	AuthorID uint   `json:"authorId"`
	Title    string `json:"title,omitempty"`
}

// NewEnvelope wraps a payload struct into an envelope with a fresh event ID.
func NewEnvelope(topic string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s payload: %w", topic, err)
	}
	return &Envelope{
		ID:      uuid.New().String(),
		Topic:   topic,
		Payload: data,
	}, nil
}

// Encode serializes the envelope for publishing.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a delivered message body into an envelope. A body that cannot
// be parsed is a malformed event: the consumer drops it instead of requeuing.
func Decode(body []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedEvent, err)
	}
	if e.Topic == "" {
		return nil, fmt.Errorf("%w: missing topic", models.ErrMalformedEvent)
	}
	return &e, nil
}

// DecodePayload parses the envelope payload into the given type.
func DecodePayload[T any](e *Envelope) (*T, error) {
	var payload T
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedEvent, err)
	}
	return &payload, nil
}
