package nop

import (
	"context"

	"github.com/s-bear/image-hash/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish validates the event type and otherwise does nothing.
func (p *Publisher) Publish(_ context.Context, event eventstream.Event) error {
	if event.Type == "" {
		return eventstream.ErrUnknownEventType
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
