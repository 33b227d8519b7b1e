package runner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa-dev/festa/pkg/channels/gochannel"
	"github.com/festa-dev/festa/pkg/eventbus"
	"github.com/festa-dev/festa/pkg/events"
	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/persistence/file"
	"github.com/festa-dev/festa/pkg/protocol"
	"github.com/festa-dev/festa/pkg/store"
)

type fakeAgent struct {
	name    string
	execute func(ctx context.Context, req protocol.ExecutionRequest) (*protocol.ExecutionResult, error)
}

func (a *fakeAgent) Name() string {
	return a.name
}

func (a *fakeAgent) Execute(ctx context.Context, req protocol.ExecutionRequest) (*protocol.ExecutionResult, error) {
	return a.execute(ctx, req)
}

type eventCollector struct {
	mu        sync.Mutex
	completed []*events.AgentCompleted
	failed    []*events.AgentFailed
	started   []*events.AgentStarted
}

func (c *eventCollector) handleStarted(_ context.Context, event any) error {
	if started, ok := event.(*events.AgentStarted); ok {
		c.mu.Lock()
		c.started = append(c.started, started)
		c.mu.Unlock()
	}

	return nil
}

func (c *eventCollector) handleCompleted(_ context.Context, event any) error {
	if completed, ok := event.(*events.AgentCompleted); ok {
		c.mu.Lock()
		c.completed = append(c.completed, completed)
		c.mu.Unlock()
	}

	return nil
}

func (c *eventCollector) handleFailed(_ context.Context, event any) error {
	if failed, ok := event.(*events.AgentFailed); ok {
		c.mu.Lock()
		c.failed = append(c.failed, failed)
		c.mu.Unlock()
	}

	return nil
}

func (c *eventCollector) counts() (int, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.started), len(c.completed), len(c.failed)
}

type fixture struct {
	store     *store.PartyStore
	trigger   eventbus.EventBus
	collector *eventCollector
}

func setup(t *testing.T, agent protocol.Agent, timeout time.Duration) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	partyStore := store.NewPartyStore(file.NewPartyRepository(t.TempDir()), t.TempDir(), logger)

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	ctx := context.Background()

	collector := &eventCollector{}
	observerBus := eventbus.NewWatermillEventBus(pub, sub)
	require.NoError(t, observerBus.Handle(events.AgentStartedEvent, collector.handleStarted))
	require.NoError(t, observerBus.Handle(events.AgentCompletedEvent, collector.handleCompleted))
	require.NoError(t, observerBus.Handle(events.AgentFailedEvent, collector.handleFailed))
	require.NoError(t, observerBus.Subscribe(ctx))

	runnerBus := eventbus.NewWatermillEventBus(pub, sub)
	agentRunner := NewAgentRunner(agent, partyStore, runnerBus, logger, timeout, nil)
	require.NoError(t, agentRunner.Start(ctx))

	return &fixture{
		store:     partyStore,
		trigger:   eventbus.NewWatermillEventBus(pub, sub),
		collector: collector,
	}
}

func (f *fixture) newParty(t *testing.T) *models.PartyState {
	t.Helper()

	party, err := f.store.CreateParty(context.Background(), []models.Input{
		{SourceType: "user_request", Content: "jungle themed party"},
	}, nil)
	require.NoError(t, err)

	return party
}

func (f *fixture) requestExecution(t *testing.T, partyID, agentName string) {
	t.Helper()

	event := events.AgentShouldExecute{
		BaseEvent: events.NewBaseEvent(events.AgentShouldExecuteEvent, partyID).WithCorrelation("corr-1"),
		AgentName: agentName,
	}
	require.NoError(t, f.trigger.Publish(context.Background(), partyID, event))
}

func TestRunnerExecutesAndReportsResult(t *testing.T) {
	agent := &fakeAgent{
		name: "theme_agent",
		execute: func(_ context.Context, _ protocol.ExecutionRequest) (*protocol.ExecutionResult, error) {
			return &protocol.ExecutionResult{
				Result:     map[string]any{"theme": "jungle"},
				Confidence: 0.9,
			}, nil
		},
	}

	f := setup(t, agent, 0)
	party := f.newParty(t)
	f.requestExecution(t, party.PartyID, "theme_agent")

	assert.Eventually(t, func() bool {
		_, completed, _ := f.collector.counts()

		return completed == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.collector.mu.Lock()
	completed := f.collector.completed[0]
	f.collector.mu.Unlock()

	assert.Equal(t, "theme_agent", completed.AgentName)
	assert.Equal(t, "corr-1", completed.CorrelationID)
	assert.Equal(t, "jungle", completed.Result["theme"])

	updated, err := f.store.GetParty(context.Background(), party.PartyID)
	require.NoError(t, err)

	result := updated.ResultFor("theme_agent")
	require.NotNil(t, result)
	assert.Equal(t, models.AgentStatusCompleted, result.Status)
	assert.Equal(t, completed.ExecutionID, result.ExecutionID)
}

func TestRunnerIgnoresOtherAgents(t *testing.T) {
	agent := &fakeAgent{
		name: "theme_agent",
		execute: func(_ context.Context, _ protocol.ExecutionRequest) (*protocol.ExecutionResult, error) {
			return &protocol.ExecutionResult{Result: map[string]any{}}, nil
		},
	}

	f := setup(t, agent, 0)
	party := f.newParty(t)
	f.requestExecution(t, party.PartyID, "venue_agent")

	time.Sleep(200 * time.Millisecond)

	started, completed, failed := f.collector.counts()
	assert.Zero(t, started)
	assert.Zero(t, completed)
	assert.Zero(t, failed)

	updated, err := f.store.GetParty(context.Background(), party.PartyID)
	require.NoError(t, err)
	assert.Nil(t, updated.ResultFor("theme_agent"))
}

func TestRunnerReportsExecutionError(t *testing.T) {
	agent := &fakeAgent{
		name: "budget_agent",
		execute: func(_ context.Context, _ protocol.ExecutionRequest) (*protocol.ExecutionResult, error) {
			return nil, errors.New("no numbers found")
		},
	}

	f := setup(t, agent, 0)
	party := f.newParty(t)
	f.requestExecution(t, party.PartyID, "budget_agent")

	assert.Eventually(t, func() bool {
		_, _, failed := f.collector.counts()

		return failed == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.collector.mu.Lock()
	failed := f.collector.failed[0]
	f.collector.mu.Unlock()

	assert.Equal(t, "execution_error", failed.ErrorType)
	assert.Equal(t, "no numbers found", failed.Error)

	updated, err := f.store.GetParty(context.Background(), party.PartyID)
	require.NoError(t, err)

	result := updated.ResultFor("budget_agent")
	require.NotNil(t, result)
	assert.Equal(t, models.AgentStatusFailed, result.Status)
	assert.Equal(t, "execution_error", result.ErrorType)
}

func TestRunnerSurvivesPanic(t *testing.T) {
	calls := 0
	agent := &fakeAgent{
		name: "cake_agent",
		execute: func(_ context.Context, _ protocol.ExecutionRequest) (*protocol.ExecutionResult, error) {
			calls++
			if calls == 1 {
				panic("unexpected input shape")
			}

			return &protocol.ExecutionResult{Result: map[string]any{"flavor": "vanilla"}}, nil
		},
	}

	f := setup(t, agent, 0)
	party := f.newParty(t)

	f.requestExecution(t, party.PartyID, "cake_agent")

	assert.Eventually(t, func() bool {
		_, _, failed := f.collector.counts()

		return failed == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.collector.mu.Lock()
	failed := f.collector.failed[0]
	f.collector.mu.Unlock()
	assert.Equal(t, "panic", failed.ErrorType)

	// The subscription loop keeps serving requests after a panic.
	f.requestExecution(t, party.PartyID, "cake_agent")

	assert.Eventually(t, func() bool {
		_, completed, _ := f.collector.counts()

		return completed == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunnerEnforcesTimeout(t *testing.T) {
	agent := &fakeAgent{
		name: "venue_agent",
		execute: func(ctx context.Context, _ protocol.ExecutionRequest) (*protocol.ExecutionResult, error) {
			select {
			case <-time.After(5 * time.Second):
				return &protocol.ExecutionResult{Result: map[string]any{}}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}

	f := setup(t, agent, 50*time.Millisecond)
	party := f.newParty(t)
	f.requestExecution(t, party.PartyID, "venue_agent")

	assert.Eventually(t, func() bool {
		_, _, failed := f.collector.counts()

		return failed == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.collector.mu.Lock()
	failed := f.collector.failed[0]
	f.collector.mu.Unlock()
	assert.Equal(t, "timeout", failed.ErrorType)
}
