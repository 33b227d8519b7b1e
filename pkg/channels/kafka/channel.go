// Package kafka provides the Kafka channel used when the api and planner run
// as separate processes.
package kafka

import (
	"errors"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

// GroupID names the consumer group for one logical consumer of a service.
// Kafka splits a topic's partitions between the members of one group, so
// every consumer that must see every envelope needs its own group.
func GroupID(serviceName, consumerName string) string {
	return "cg-" + serviceName + "-" + consumerName
}

func brokerList() ([]string, error) {
	brokers := strings.Split(os.Getenv("KAFKA_BROKERS"), ",")
	if len(brokers) == 0 || brokers[0] == "" {
		return nil, errors.New("KAFKA_BROKERS environment variable is not set or empty")
	}

	return brokers, nil
}

func CreatePublisher(logger watermill.LoggerAdapter) (*kafka.Publisher, error) {
	brokers, err := brokerList()
	if err != nil {
		return nil, err
	}

	saramaPublisherConfig := sarama.NewConfig()
	saramaPublisherConfig.Producer.Return.Successes = true

	return kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaPublisherConfig,
			OTELEnabled:           true,
		},
		logger,
	)
}

// CreateSubscriber builds a subscriber owning the given consumer group.
// Callers must not share the returned subscriber between logical consumers.
func CreateSubscriber(logger watermill.LoggerAdapter, consumerGroup string) (*kafka.Subscriber, error) {
	brokers, err := brokerList()
	if err != nil {
		return nil, err
	}

	saramaSubscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaSubscriberConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	return kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaSubscriberConfig,
			ConsumerGroup:         consumerGroup,
			OTELEnabled:           true,
		},
		logger,
	)
}
