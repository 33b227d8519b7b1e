package orchestrator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/festa-dev/festa/pkg/eventbus"
	"github.com/festa-dev/festa/pkg/events"
	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/persistence"
	"github.com/festa-dev/festa/pkg/registry"
	"github.com/festa-dev/festa/pkg/store"
)

const (
	sourceTypeUserRequest = "user_request"
	sourceTypeFeedback    = "feedback"
)

// Execution types stamped on dispatched execution requests so agents and
// consumers can tell an initial planning round from a feedback re-run.
const (
	ExecutionTypeInitial  = "initial"
	ExecutionTypeFeedback = "feedback"
)

type Orchestrator struct {
	partyStore *store.PartyStore
	registry   *registry.Registry
	eventBus   eventbus.EventBus
	logger     *slog.Logger
}

func NewOrchestrator(partyStore *store.PartyStore, reg *registry.Registry, bus eventbus.EventBus, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		partyStore: partyStore,
		registry:   reg,
		eventBus:   bus,
		logger:     logger.With("module", "orchestrator"),
	}
}

// Start admits a new party: it persists the pending state, asks every agent
// selected by the trigger policy to execute under one shared correlation ID,
// and transitions the party to running.
func (o *Orchestrator) Start(ctx context.Context, inputs []models.Input, metadata map[string]any) (*models.PartyState, error) {
	cleaned := make([]models.Input, 0, len(inputs))

	for _, input := range inputs {
		if strings.TrimSpace(input.Content) == "" {
			continue
		}

		if input.SourceType == "" {
			input.SourceType = sourceTypeUserRequest
		}

		cleaned = append(cleaned, input)
	}

	if len(cleaned) == 0 {
		return nil, &OrchestratorError{Op: "Start", Err: ErrNoInputs}
	}

	party, err := o.partyStore.CreateParty(ctx, cleaned, metadata)
	if err != nil {
		return nil, &OrchestratorError{Op: "Start", Err: err}
	}

	partyID := party.PartyID
	correlationID := o.eventBus.GenerateID()

	party, err = o.partyStore.SetCorrelation(ctx, partyID, correlationID)
	if err != nil {
		return nil, &OrchestratorError{Op: "Start", PartyID: partyID, Err: err}
	}

	logger := o.logger.With("party_id", partyID, "correlation_id", correlationID)

	o.dispatch(ctx, logger, party, correlationID, ExecutionTypeInitial)

	party, err = o.partyStore.SetStatus(ctx, partyID, models.PartyStatusRunning)
	if err != nil {
		return nil, &OrchestratorError{Op: "Start", PartyID: partyID, Err: err}
	}

	logger.InfoContext(ctx, "Party started", "status", party.Status)

	return party, nil
}

// Feedback appends one feedback input and re-triggers every agent whose
// prerequisites the enlarged input set satisfies, under a fresh correlation
// ID.
func (o *Orchestrator) Feedback(ctx context.Context, partyID, content string, metadata map[string]any) (*models.PartyState, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &OrchestratorError{Op: "Feedback", PartyID: partyID, Err: ErrEmptyFeedback}
	}

	party, err := o.partyStore.AppendInput(ctx, partyID, models.Input{
		SourceType: sourceTypeFeedback,
		Content:    content,
	})
	if err != nil {
		return nil, &OrchestratorError{Op: "Feedback", PartyID: partyID, Err: err}
	}

	if len(metadata) > 0 {
		party, err = o.partyStore.MergeMetadata(ctx, partyID, metadata)
		if err != nil {
			return nil, &OrchestratorError{Op: "Feedback", PartyID: partyID, Err: err}
		}
	}

	correlationID := o.eventBus.GenerateID()
	logger := o.logger.With("party_id", partyID, "correlation_id", correlationID)
	logger.InfoContext(ctx, "Feedback received, re-triggering agents")

	o.dispatch(ctx, logger, party, correlationID, ExecutionTypeFeedback)

	return party, nil
}

// dispatch publishes one execution request per selected agent. Publish
// failures are logged and skipped; the remaining agents still run.
func (o *Orchestrator) dispatch(ctx context.Context, logger *slog.Logger, party *models.PartyState, correlationID, executionType string) {
	for _, agentName := range o.registry.Plan(party.Inputs) {
		event := events.AgentShouldExecute{
			BaseEvent:     events.NewBaseEvent(events.AgentShouldExecuteEvent, party.PartyID).WithCorrelation(correlationID),
			AgentName:     agentName,
			ExecutionType: executionType,
		}

		err := o.eventBus.Publish(ctx, party.PartyID, event)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to publish execution request", "error", err, "agent_name", agentName)

			continue
		}

		logger.InfoContext(ctx, "Execution requested", "agent_name", agentName)
	}
}

// Status returns the party's current state.
func (o *Orchestrator) Status(ctx context.Context, partyID string) (*models.PartyState, error) {
	return o.partyStore.GetParty(ctx, partyID)
}

// ListActive returns the IDs of parties that are not yet terminal.
func (o *Orchestrator) ListActive(ctx context.Context) ([]string, error) {
	return o.partyStore.ListActive(ctx)
}

// Stats returns aggregate counters over the stored parties.
func (o *Orchestrator) Stats(ctx context.Context) (*persistence.Stats, error) {
	return o.partyStore.Stats(ctx)
}

// Backup writes a timestamped snapshot of the party state and returns its
// path.
func (o *Orchestrator) Backup(ctx context.Context, partyID string) (string, error) {
	return o.partyStore.Backup(ctx, partyID)
}

// Delete removes the party state. Backups survive deletion.
func (o *Orchestrator) Delete(ctx context.Context, partyID string) error {
	return o.partyStore.Delete(ctx, partyID)
}

// HealthCheck reports persistence and registry health.
func (o *Orchestrator) HealthCheck(ctx context.Context) (string, bool) {
	if message, healthy := o.registry.HealthCheck(); !healthy {
		return message, false
	}

	_, err := o.partyStore.Stats(ctx)
	if err != nil {
		return "persistence unhealthy: " + err.Error(), false
	}

	return "ok", true
}
