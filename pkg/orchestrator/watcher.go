package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/festa-dev/festa/pkg/eventbus"
	"github.com/festa-dev/festa/pkg/events"
	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/registry"
	"github.com/festa-dev/festa/pkg/store"
)

// Agent names the watcher maps into plan facets. They match the registered
// agent names in pkg/agents.
const (
	themeAgentName  = "theme_agent"
	venueAgentName  = "venue_agent"
	budgetAgentName = "budget_agent"
	cakeAgentName   = "cake_agent"
)

// CompletionWatcher observes agent outcomes and finalizes the party once
// every required agent has reached a terminal status. Budget completions
// additionally refresh the party's budget snapshot.
type CompletionWatcher struct {
	partyStore *store.PartyStore
	registry   *registry.Registry
	eventBus   eventbus.EventBus
	logger     *slog.Logger
}

func NewCompletionWatcher(partyStore *store.PartyStore, reg *registry.Registry, bus eventbus.EventBus, logger *slog.Logger) *CompletionWatcher {
	return &CompletionWatcher{
		partyStore: partyStore,
		registry:   reg,
		eventBus:   bus,
		logger:     logger.With("module", "completion-watcher"),
	}
}

func (w *CompletionWatcher) Start(ctx context.Context) error {
	err := w.eventBus.Handle(events.AgentCompletedEvent, w.handleAgentCompleted)
	if err != nil {
		return err
	}

	err = w.eventBus.Handle(events.AgentFailedEvent, w.handleAgentFailed)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Completion watcher started")

	return nil
}

func (w *CompletionWatcher) handleAgentCompleted(ctx context.Context, event any) error {
	completed, ok := event.(*events.AgentCompleted)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for AgentCompleted")

		return nil
	}

	logger := w.logger.With("party_id", completed.PartyID, "agent_name", completed.AgentName)

	if completed.AgentName == budgetAgentName {
		w.refreshBudget(ctx, logger, completed)
	}

	w.finalize(ctx, logger, completed.PartyID, completed.CorrelationID)

	return nil
}

func (w *CompletionWatcher) handleAgentFailed(ctx context.Context, event any) error {
	failed, ok := event.(*events.AgentFailed)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for AgentFailed")

		return nil
	}

	logger := w.logger.With("party_id", failed.PartyID, "agent_name", failed.AgentName)

	w.finalize(ctx, logger, failed.PartyID, failed.CorrelationID)

	return nil
}

// refreshBudget folds a budget agent result into the party's budget snapshot
// and announces the change.
func (w *CompletionWatcher) refreshBudget(ctx context.Context, logger *slog.Logger, completed *events.AgentCompleted) {
	snapshot := budgetSnapshotFrom(completed.Result)
	if snapshot == nil {
		logger.WarnContext(ctx, "Budget result missing total, snapshot not updated")

		return
	}

	_, err := w.partyStore.SetBudget(ctx, completed.PartyID, snapshot)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to store budget snapshot", "error", err)

		return
	}

	event := events.BudgetUpdated{
		BaseEvent: events.NewBaseEvent(events.BudgetUpdatedEvent, completed.PartyID).WithCorrelation(completed.CorrelationID),
		Budget:    snapshot,
	}

	err = w.eventBus.Publish(ctx, completed.PartyID, event)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to publish budget updated event", "error", err)
	}
}

// finalize assembles the final plan once every required agent is terminal.
// Running it after every outcome is idempotent: feedback re-runs simply
// reassemble the plan and announce it again.
func (w *CompletionWatcher) finalize(ctx context.Context, logger *slog.Logger, partyID, correlationID string) {
	party, err := w.partyStore.GetParty(ctx, partyID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load party for finalization", "error", err)

		return
	}

	allTerminal, allCompleted := party.RequiredAgentsTerminal(w.registry.RequiredAgents())
	if !allTerminal {
		return
	}

	plan := assemblePlan(party)

	status := models.PartyStatusCompleted
	if !allCompleted {
		status = models.PartyStatusError
	}

	party, err = w.partyStore.SetPlan(ctx, partyID, plan, status)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to store final plan", "error", err)

		return
	}

	event := events.PlanUpdated{
		BaseEvent: events.NewBaseEvent(events.PlanUpdatedEvent, partyID).WithCorrelation(correlationID),
		Plan:      plan,
		Status:    string(party.Status),
	}

	err = w.eventBus.Publish(ctx, partyID, event)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to publish plan updated event", "error", err)
	}

	logger.InfoContext(ctx, "Party finalized", "status", party.Status)
}

// assemblePlan collects each completed agent's result into its plan facet.
// Failed agents leave their facet empty; the summary records the gap.
func assemblePlan(party *models.PartyState) *models.Plan {
	plan := &models.Plan{GeneratedAt: time.Now().UTC()}

	facets := []struct {
		agentName string
		target    *map[string]any
	}{
		{themeAgentName, &plan.Theme},
		{venueAgentName, &plan.Venue},
		{budgetAgentName, &plan.Budget},
		{cakeAgentName, &plan.Cake},
	}

	var done, missing []string

	for _, facet := range facets {
		result := party.ResultFor(facet.agentName)
		if result == nil {
			continue
		}

		if result.Status == models.AgentStatusCompleted {
			*facet.target = result.Result

			done = append(done, strings.TrimSuffix(facet.agentName, "_agent"))

			continue
		}

		missing = append(missing, strings.TrimSuffix(facet.agentName, "_agent"))
	}

	plan.Summary = fmt.Sprintf("plan covers %s", strings.Join(done, ", "))
	if len(done) == 0 {
		plan.Summary = "no agent produced a result"
	}

	if len(missing) > 0 && len(done) > 0 {
		plan.Summary += fmt.Sprintf("; missing %s", strings.Join(missing, ", "))
	}

	return plan
}

// budgetSnapshotFrom rebuilds a typed snapshot from a budget agent result
// map. Allocations survive a JSON round trip as map[string]any.
func budgetSnapshotFrom(result map[string]any) *models.BudgetSnapshot {
	total, ok := result["total"].(float64)
	if !ok {
		return nil
	}

	snapshot := &models.BudgetSnapshot{
		Total:     total,
		Currency:  "USD",
		UpdatedAt: time.Now().UTC(),
	}

	if currency, okCurrency := result["currency"].(string); okCurrency && currency != "" {
		snapshot.Currency = currency
	}

	switch allocations := result["allocations"].(type) {
	case map[string]float64:
		snapshot.Allocations = allocations
	case map[string]any:
		snapshot.Allocations = make(map[string]float64, len(allocations))

		for category, amount := range allocations {
			if value, okValue := amount.(float64); okValue {
				snapshot.Allocations[category] = value
			}
		}
	}

	return snapshot
}
