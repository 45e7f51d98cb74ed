package ports

import (
	"context"

	"github.com/aescanero/diun2homer/pkg/domain"
)

// EventHandler processes an event delivered by the bus.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes events to topics and fans them out to subscribers.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error

	// Subscribe registers handler on topic until ctx is cancelled.
	Subscribe(ctx context.Context, topic string, handler EventHandler) error

	Close() error
}
