package handlers

import (
	"context"
	"log"

	"github.com/socialpulse/backend/internal/events"
)

// EventPublisher publishes domain events onto the bus. Satisfied by
// *bus.Client.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// publishEvent wraps a payload into an envelope and publishes it. The
// database write has already committed by the time this runs, so a publish
// failure is logged rather than failing the request; consumers catch up on
// the next event.
func publishEvent(ctx context.Context, publisher EventPublisher, topic string, payload any) {
	if publisher == nil {
		return
	}
	env, err := events.NewEnvelope(topic, payload)
	if err != nil {
		log.Printf("Failed to build %s event: %v", topic, err)
		return
	}
	body, err := env.Encode()
	if err != nil {
		log.Printf("Failed to encode %s event: %v", topic, err)
		return
	}
	if err := publisher.Publish(ctx, topic, body); err != nil {
		log.Printf("Failed to publish %s event: %v", topic, err)
	}
}
