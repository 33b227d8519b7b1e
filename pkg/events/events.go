// Package events defines the envelope types and topic names for party
// orchestration notifications.
package events

import (
	"time"

	"github.com/festa-dev/festa/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic names are a stable external contract; the event type doubles as the
// topic the envelope is published on.
const (
	AgentShouldExecuteEvent EventType = "party.agent.should_execute"
	AgentStartedEvent       EventType = "party.agent.started"
	AgentCompletedEvent     EventType = "party.agent.completed"
	AgentFailedEvent        EventType = "party.agent.failed"
	BudgetUpdatedEvent      EventType = "party.budget.updated"
	PlanUpdatedEvent        EventType = "party.plan.updated"
)

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

// BaseEvent carries the envelope fields shared by every event. Envelopes are
// immutable once published; CorrelationID threads one logical trigger through
// its cascade of started/completed/failed effects.
type BaseEvent struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	PartyID       string         `json:"party_id"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// AgentShouldExecute asks one agent to run for a party. All agents share this
// topic; each agent discards envelopes whose AgentName is not its own.
type AgentShouldExecute struct {
	BaseEvent

	AgentName     string `json:"agent_name"`
	ExecutionType string `json:"execution_type,omitempty"`
}

func (e AgentShouldExecute) GetType() EventType {
	return AgentShouldExecuteEvent
}

type AgentStarted struct {
	BaseEvent

	AgentName   string `json:"agent_name"`
	ExecutionID string `json:"execution_id"`
	Message     string `json:"message,omitempty"`
}

func (e AgentStarted) GetType() EventType {
	return AgentStartedEvent
}

type AgentCompleted struct {
	BaseEvent

	AgentName       string         `json:"agent_name"`
	ExecutionID     string         `json:"execution_id"`
	Result          map[string]any `json:"result,omitempty"`
	Confidence      float64        `json:"confidence"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
}

func (e AgentCompleted) GetType() EventType {
	return AgentCompletedEvent
}

type AgentFailed struct {
	BaseEvent

	AgentName   string `json:"agent_name"`
	ExecutionID string `json:"execution_id"`
	Error       string `json:"error"`
	ErrorType   string `json:"error_type,omitempty"`
}

func (e AgentFailed) GetType() EventType {
	return AgentFailedEvent
}

type BudgetUpdated struct {
	BaseEvent

	Budget *models.BudgetSnapshot `json:"budget"`
}

func (e BudgetUpdated) GetType() EventType {
	return BudgetUpdatedEvent
}

type PlanUpdated struct {
	BaseEvent

	Plan   *models.Plan `json:"plan"`
	Status string       `json:"status"`
}

func (e PlanUpdated) GetType() EventType {
	return PlanUpdatedEvent
}

func NewBaseEvent(eventType EventType, partyID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		PartyID:   partyID,
		Metadata:  make(map[string]any),
	}
}

// WithCorrelation returns a copy of the base event carrying the given
// correlation ID.
func (b BaseEvent) WithCorrelation(correlationID string) BaseEvent {
	b.CorrelationID = correlationID

	return b
}
