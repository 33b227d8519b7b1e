// Package bridge forwards party events to externally registered listeners.
// It is the only component clients attach to; everything upstream stays
// transport-agnostic.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/festa-dev/festa/pkg/eventbus"
	"github.com/festa-dev/festa/pkg/events"
	"github.com/festa-dev/festa/pkg/store"
)

// ExternalMessage is the client-facing rendering of one party event.
type ExternalMessage struct {
	Type      string         `json:"type"`
	PartyID   string         `json:"party_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Listener receives messages for one party. Send must be safe for
// concurrent use; a returned error marks the listener dead and it is pruned.
type Listener interface {
	Send(message ExternalMessage) error
}

// ClientBridge subscribes once to the push topics and fans each envelope out
// to the listeners registered for its party. Parties without listeners drop
// their messages silently.
type ClientBridge struct {
	partyStore *store.PartyStore
	eventBus   eventbus.EventBus
	logger     *slog.Logger

	mu        sync.RWMutex
	listeners map[string][]Listener
}

func NewClientBridge(partyStore *store.PartyStore, bus eventbus.EventBus, logger *slog.Logger) *ClientBridge {
	return &ClientBridge{
		partyStore: partyStore,
		eventBus:   bus,
		logger:     logger.With("module", "bridge"),
		listeners:  make(map[string][]Listener),
	}
}

func (b *ClientBridge) Start(ctx context.Context) error {
	for _, eventType := range []events.EventType{
		events.AgentStartedEvent,
		events.AgentCompletedEvent,
		events.AgentFailedEvent,
		events.BudgetUpdatedEvent,
		events.PlanUpdatedEvent,
	} {
		err := b.eventBus.Handle(eventType, b.handleEvent)
		if err != nil {
			return err
		}
	}

	err := b.eventBus.Subscribe(ctx)
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	b.logger.InfoContext(ctx, "Client bridge started")

	return nil
}

// Register attaches a listener to a party's message stream.
func (b *ClientBridge) Register(partyID string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners[partyID] = append(b.listeners[partyID], listener)
}

// Unregister detaches a listener. Unknown listeners are ignored.
func (b *ClientBridge) Unregister(partyID string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.removeLocked(partyID, listener)
}

func (b *ClientBridge) removeLocked(partyID string, listener Listener) {
	remaining := b.listeners[partyID][:0]

	for _, registered := range b.listeners[partyID] {
		if registered != listener {
			remaining = append(remaining, registered)
		}
	}

	if len(remaining) == 0 {
		delete(b.listeners, partyID)

		return
	}

	b.listeners[partyID] = remaining
}

func (b *ClientBridge) handleEvent(ctx context.Context, event any) error {
	message, ok := externalMessage(event)
	if !ok {
		b.logger.ErrorContext(ctx, "Unrecognized event on push topic")

		return nil
	}

	b.deliver(ctx, message)

	return nil
}

// deliver fans one message out to the party's listeners. A failed listener
// is pruned; the remaining listeners still receive the message.
func (b *ClientBridge) deliver(ctx context.Context, message ExternalMessage) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[message.PartyID]...)
	b.mu.RUnlock()

	if len(listeners) == 0 {
		return
	}

	for _, listener := range listeners {
		err := listener.Send(message)
		if err != nil {
			b.logger.WarnContext(ctx, "Listener send failed, pruning",
				"party_id", message.PartyID, "message_type", message.Type, "error", err)

			b.mu.Lock()
			b.removeLocked(message.PartyID, listener)
			b.mu.Unlock()
		}
	}
}

// HandleControl answers a client control frame. "ping" gets a pong reply;
// "status" replies with the party's current state.
func (b *ClientBridge) HandleControl(ctx context.Context, partyID, command string) (*ExternalMessage, error) {
	switch command {
	case "ping":
		return &ExternalMessage{
			Type:      "pong",
			PartyID:   partyID,
			Timestamp: time.Now().UTC(),
		}, nil
	case "status":
		party, err := b.partyStore.GetParty(ctx, partyID)
		if err != nil {
			return nil, err
		}

		return &ExternalMessage{
			Type:      "status",
			PartyID:   partyID,
			Timestamp: time.Now().UTC(),
			Data: map[string]any{
				"status":        string(party.Status),
				"agent_results": party.AgentResults,
				"final_plan":    party.FinalPlan,
				"budget":        party.Budget,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown control command %q", command)
	}
}

// externalMessage maps a typed envelope to its client rendering.
func externalMessage(event any) (ExternalMessage, bool) {
	switch typed := event.(type) {
	case *events.AgentStarted:
		return ExternalMessage{
			Type:      "agent_started",
			PartyID:   typed.PartyID,
			Timestamp: typed.Timestamp,
			Data: map[string]any{
				"agent_name":   typed.AgentName,
				"execution_id": typed.ExecutionID,
			},
		}, true
	case *events.AgentCompleted:
		return ExternalMessage{
			Type:      "agent_completed",
			PartyID:   typed.PartyID,
			Timestamp: typed.Timestamp,
			Data: map[string]any{
				"agent_name":        typed.AgentName,
				"execution_id":      typed.ExecutionID,
				"result":            typed.Result,
				"confidence":        typed.Confidence,
				"execution_time_ms": typed.ExecutionTimeMs,
			},
		}, true
	case *events.AgentFailed:
		return ExternalMessage{
			Type:      "agent_failed",
			PartyID:   typed.PartyID,
			Timestamp: typed.Timestamp,
			Data: map[string]any{
				"agent_name":   typed.AgentName,
				"execution_id": typed.ExecutionID,
				"error":        typed.Error,
				"error_type":   typed.ErrorType,
			},
		}, true
	case *events.BudgetUpdated:
		return ExternalMessage{
			Type:      "budget_updated",
			PartyID:   typed.PartyID,
			Timestamp: typed.Timestamp,
			Data:      map[string]any{"budget": typed.Budget},
		}, true
	case *events.PlanUpdated:
		return ExternalMessage{
			Type:      "plan_updated",
			PartyID:   typed.PartyID,
			Timestamp: typed.Timestamp,
			Data: map[string]any{
				"plan":   typed.Plan,
				"status": typed.Status,
			},
		}, true
	default:
		return ExternalMessage{}, false
	}
}
