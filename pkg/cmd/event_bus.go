package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/festa-dev/festa/pkg/channels/gochannel"
	"github.com/festa-dev/festa/pkg/channels/kafka"
	"github.com/festa-dev/festa/pkg/eventbus"
)

// NewEventBusChannel creates the publisher the service's bus instances share
// and a factory handing each logical consumer its own subscriber. The
// gochannel provider broadcasts natively, so every consumer gets the shared
// in-process subscriber; the kafka provider builds one subscriber per
// consumer, each in its own consumer group, so same-topic consumers all see
// every envelope instead of competing for it.
func NewEventBusChannel(provider, serviceName string, logger *slog.Logger) (message.Publisher, eventbus.SubscriberFactory) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, err := kafka.CreatePublisher(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka publisher: %w", err))
		}

		return pub, func(consumerName string) message.Subscriber {
			sub, err := kafka.CreateSubscriber(wmLogger, kafka.GroupID(serviceName, consumerName))
			if err != nil {
				panic(fmt.Errorf("failed to create Kafka subscriber for %s: %w", consumerName, err))
			}

			return sub
		}
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create in-memory pub/sub: %w", err))
		}

		return pub, func(string) message.Subscriber { return sub }
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
