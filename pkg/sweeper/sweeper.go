// Package sweeper fails agent executions that have been running longer than
// the allowed timeout. It is the safety net for runners that died mid-flight
// and can no longer report their own outcome.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/festa-dev/festa/pkg/eventbus"
	"github.com/festa-dev/festa/pkg/events"
	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/store"
)

const (
	DefaultSchedule       = "@every 30s"
	DefaultStaleThreshold = 2 * time.Minute

	errorTypeTimeout = "timeout"
)

// Sweeper periodically scans active parties for executions stuck in
// running, forces them failed and publishes the failure so the completion
// watcher can still finalize the party.
type Sweeper struct {
	partyStore     *store.PartyStore
	eventBus       eventbus.EventBus
	logger         *slog.Logger
	schedule       string
	staleThreshold time.Duration
	cron           *cron.Cron
}

func NewSweeper(partyStore *store.PartyStore, bus eventbus.EventBus, logger *slog.Logger, schedule string, staleThreshold time.Duration) *Sweeper {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}

	return &Sweeper{
		partyStore:     partyStore,
		eventBus:       bus,
		logger:         logger.With("module", "sweeper"),
		schedule:       schedule,
		staleThreshold: staleThreshold,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := s.cron.AddFunc(s.schedule, func() {
		swept, sweepErr := s.Sweep(ctx)
		if sweepErr != nil {
			s.logger.ErrorContext(ctx, "Sweep failed", "error", sweepErr)

			return
		}

		if swept > 0 {
			s.logger.InfoContext(ctx, "Swept stale executions", "count", swept)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Sweeper started", "schedule", s.schedule, "stale_threshold", s.staleThreshold)

	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping sweeper")

	if s.cron != nil {
		s.cron.Stop()
	}

	return nil
}

// Sweep runs one scan and returns how many executions it forced failed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	parties, err := s.partyStore.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list parties: %w", err)
	}

	cutoff := time.Now().UTC().Add(-s.staleThreshold)
	swept := 0

	for _, party := range parties {
		if party.Status.IsTerminal() {
			continue
		}

		for _, result := range party.AgentResults {
			if !s.isStale(result, cutoff) {
				continue
			}

			s.forceFailed(ctx, party, result)
			swept++
		}
	}

	return swept, nil
}

func (s *Sweeper) isStale(result *models.AgentResult, cutoff time.Time) bool {
	if result.Status != models.AgentStatusRunning {
		return false
	}

	return result.StartedAt != nil && result.StartedAt.Before(cutoff)
}

func (s *Sweeper) forceFailed(ctx context.Context, party *models.PartyState, result *models.AgentResult) {
	logger := s.logger.With(
		"party_id", party.PartyID,
		"agent_name", result.AgentName,
		"execution_id", result.ExecutionID,
	)

	message := fmt.Sprintf("execution exceeded %s without reporting", s.staleThreshold)

	_, err := s.partyStore.SetAgentFailed(ctx, party.PartyID, result.AgentName, result.ExecutionID, message, errorTypeTimeout)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to force agent failure", "error", err)

		return
	}

	event := events.AgentFailed{
		BaseEvent:   events.NewBaseEvent(events.AgentFailedEvent, party.PartyID).WithCorrelation(party.CorrelationID),
		AgentName:   result.AgentName,
		ExecutionID: result.ExecutionID,
		Error:       message,
		ErrorType:   errorTypeTimeout,
	}

	err = s.eventBus.Publish(ctx, party.PartyID, event)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to publish forced failure", "error", err)
	}

	logger.WarnContext(ctx, "Forced stale execution to failed")
}
