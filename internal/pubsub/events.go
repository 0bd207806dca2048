// Package pubsub provides a generic publish/subscribe event system used
// for run progress and log fan-out.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// StartedEvent marks the beginning of a unit of work.
	StartedEvent EventType = "started"
	// CompletedEvent marks successful completion.
	CompletedEvent EventType = "completed"
	// FailedEvent marks a failure.
	FailedEvent EventType = "failed"
	// MessageEvent carries an informational payload, e.g. a log entry.
	MessageEvent EventType = "message"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
