package eventbus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/festa-dev/festa/pkg/events"
)

// SubscriberFactory yields the subscriber backing one named logical
// consumer. Broadcast backends may hand every consumer the same subscriber;
// competing-consumer backends such as Kafka must return a subscriber with a
// distinct consumer group per name, otherwise same-topic consumers split the
// stream between them instead of each seeing every envelope.
type SubscriberFactory func(consumerName string) message.Subscriber

// WatermillEventBus routes typed envelopes over a watermill pub/sub. The
// event type string is the watermill topic, so per-topic ordering follows
// directly from watermill's per-topic FIFO delivery.
//
// Each logical consumer must own its own WatermillEventBus instance: every
// instance subscribes independently, which gives broadcast semantics when
// several instances share one pub/sub.
type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) EventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(string(event.GetType()), msg)
}

// Subscribe attaches one consumer loop per registered event type. Handlers
// must be registered via Handle before Subscribe is called.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	for eventType, handler := range eb.subscriptions {
		messages, err := eb.subscriber.Subscribe(ctx, string(eventType))
		if err != nil {
			return err
		}

		go eb.consume(ctx, eventType, handler, messages)
	}

	return nil
}

func (eb *WatermillEventBus) consume(ctx context.Context, eventType events.EventType, handler EventHandler, messages <-chan *message.Message) {
	for msg := range messages {
		event := newEvent(eventType)
		if event == nil {
			msg.Nack()

			continue
		}

		err := json.Unmarshal(msg.Payload, event)
		if err != nil {
			msg.Nack()

			continue
		}

		err = handler(ctx, event)
		if err != nil {
			msg.Nack()

			continue
		}

		msg.Ack()
	}
}

func newEvent(eventType events.EventType) any {
	switch eventType {
	case events.AgentShouldExecuteEvent:
		return &events.AgentShouldExecute{}
	case events.AgentStartedEvent:
		return &events.AgentStarted{}
	case events.AgentCompletedEvent:
		return &events.AgentCompleted{}
	case events.AgentFailedEvent:
		return &events.AgentFailed{}
	case events.BudgetUpdatedEvent:
		return &events.BudgetUpdated{}
	case events.PlanUpdatedEvent:
		return &events.PlanUpdated{}
	default:
		return nil
	}
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
