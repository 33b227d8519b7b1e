// Package eventbus provides publish/subscribe infrastructure for party
// orchestration. Delivery is fire-and-forget: envelopes reach every
// subscriber registered at publish time, in publish order per topic, and are
// never replayed for subscribers that attach later.
package eventbus

import (
	"context"

	"github.com/festa-dev/festa/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event interface{}) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
