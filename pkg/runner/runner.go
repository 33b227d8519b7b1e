// Package runner hosts one planning agent and drives its executions from the
// event bus.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/festa-dev/festa/pkg/eventbus"
	"github.com/festa-dev/festa/pkg/events"
	"github.com/festa-dev/festa/pkg/otelhelper"
	"github.com/festa-dev/festa/pkg/protocol"
	"github.com/festa-dev/festa/pkg/store"

	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a single agent execution.
const DefaultTimeout = 2 * time.Minute

const (
	errorTypeTimeout   = "timeout"
	errorTypePanic     = "panic"
	errorTypeExecution = "execution_error"
)

// AgentRunner subscribes its agent to the shared execution-request topic,
// discards requests addressed to other agents, and reports every outcome
// both to the party store and back onto the bus. Executions run one at a
// time; a failure or panic never stops the subscription loop.
type AgentRunner struct {
	agent      protocol.Agent
	partyStore *store.PartyStore
	eventBus   eventbus.EventBus
	logger     *slog.Logger
	timeout    time.Duration
	tracer     trace.Tracer
	mu         sync.Mutex
}

func NewAgentRunner(
	agent protocol.Agent,
	partyStore *store.PartyStore,
	bus eventbus.EventBus,
	logger *slog.Logger,
	timeout time.Duration,
	tracer trace.Tracer,
) *AgentRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &AgentRunner{
		agent:      agent,
		partyStore: partyStore,
		eventBus:   bus,
		logger:     logger.With("module", "runner", "agent_name", agent.Name()),
		timeout:    timeout,
		tracer:     tracer,
	}
}

func (r *AgentRunner) Start(ctx context.Context) error {
	err := r.eventBus.Handle(events.AgentShouldExecuteEvent, r.handleShouldExecute)
	if err != nil {
		return err
	}

	err = r.eventBus.Subscribe(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	r.logger.InfoContext(ctx, "Agent runner started")

	return nil
}

// handleShouldExecute always returns nil: outcomes travel as events, and a
// redelivery loop for a deterministic failure would change nothing.
func (r *AgentRunner) handleShouldExecute(ctx context.Context, event any) error {
	request, ok := event.(*events.AgentShouldExecute)
	if !ok {
		r.logger.ErrorContext(ctx, "Invalid event type for AgentShouldExecute")

		return nil
	}

	if request.AgentName != r.agent.Name() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	executionID := r.eventBus.GenerateID()
	logger := r.logger.With(
		"party_id", request.PartyID,
		"execution_id", executionID,
		"event_id", request.ID,
	)
	logger.InfoContext(ctx, "Processing execution request")

	if r.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, r.tracer, "agent.execute",
			attribute.String(otelhelper.PartyIDKey, request.PartyID),
			attribute.String(otelhelper.AgentNameKey, r.agent.Name()),
			attribute.String(otelhelper.ExecutionIDKey, executionID),
		)
		defer span.End()
	}

	party, err := r.partyStore.SetAgentStarted(ctx, request.PartyID, r.agent.Name(), executionID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to mark agent started", "error", err)

		return nil
	}

	startedEvent := events.AgentStarted{
		BaseEvent:   events.NewBaseEvent(events.AgentStartedEvent, request.PartyID).WithCorrelation(request.CorrelationID),
		AgentName:   r.agent.Name(),
		ExecutionID: executionID,
	}

	err = r.eventBus.Publish(ctx, request.PartyID, startedEvent)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to publish agent started event", "error", err)
	}

	startedAt := time.Now()
	result, err := r.execute(ctx, protocol.ExecutionRequest{
		PartyID:       request.PartyID,
		ExecutionID:   executionID,
		ExecutionType: request.ExecutionType,
		Party:         party,
	})
	elapsed := time.Since(startedAt).Milliseconds()

	if err != nil {
		r.reportFailure(ctx, logger, request, executionID, err)

		return nil
	}

	_, err = r.partyStore.SetAgentResult(ctx, request.PartyID, r.agent.Name(), executionID, result.Result, result.Confidence, elapsed)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to store agent result", "error", err)
	}

	completedEvent := events.AgentCompleted{
		BaseEvent:       events.NewBaseEvent(events.AgentCompletedEvent, request.PartyID).WithCorrelation(request.CorrelationID),
		AgentName:       r.agent.Name(),
		ExecutionID:     executionID,
		Result:          result.Result,
		Confidence:      result.Confidence,
		ExecutionTimeMs: elapsed,
	}

	err = r.eventBus.Publish(ctx, request.PartyID, completedEvent)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to publish agent completed event", "error", err)
	}

	logger.InfoContext(ctx, "Agent execution completed", "execution_time_ms", elapsed)

	return nil
}

// execute runs the agent under the configured timeout and converts panics
// into errors.
func (r *AgentRunner) execute(ctx context.Context, request protocol.ExecutionRequest) (*protocol.ExecutionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		result *protocol.ExecutionResult
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				done <- outcome{err: &panicError{value: recovered}}
			}
		}()

		result, err := r.agent.Execute(ctx, request)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// panicError preserves a recovered panic value as an error.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("agent panicked: %v", e.value)
}

func (r *AgentRunner) reportFailure(ctx context.Context, logger *slog.Logger, request *events.AgentShouldExecute, executionID string, execErr error) {
	errorType := errorTypeExecution

	var panicked *panicError

	switch {
	case errors.Is(execErr, context.DeadlineExceeded):
		errorType = errorTypeTimeout
	case errors.As(execErr, &panicked):
		errorType = errorTypePanic
	}

	logger.ErrorContext(ctx, "Agent execution failed", "error", execErr, "error_type", errorType)

	_, err := r.partyStore.SetAgentFailed(ctx, request.PartyID, r.agent.Name(), executionID, execErr.Error(), errorType)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to store agent failure", "error", err)
	}

	failedEvent := events.AgentFailed{
		BaseEvent:   events.NewBaseEvent(events.AgentFailedEvent, request.PartyID).WithCorrelation(request.CorrelationID),
		AgentName:   r.agent.Name(),
		ExecutionID: executionID,
		Error:       execErr.Error(),
		ErrorType:   errorType,
	}

	err = r.eventBus.Publish(ctx, request.PartyID, failedEvent)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to publish agent failed event", "error", err)
	}
}
