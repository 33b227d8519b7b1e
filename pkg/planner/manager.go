// Package planner wires the planning pipeline: one runner per registered
// agent, the completion watcher, the client bridge, the stale-execution
// sweeper and the optional feedback queue receiver, all over one shared
// pub/sub channel.
package planner

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"

	"github.com/festa-dev/festa/pkg/bridge"
	"github.com/festa-dev/festa/pkg/eventbus"
	"github.com/festa-dev/festa/pkg/orchestrator"
	"github.com/festa-dev/festa/pkg/receivers/queue"
	"github.com/festa-dev/festa/pkg/registry"
	"github.com/festa-dev/festa/pkg/runner"
	"github.com/festa-dev/festa/pkg/store"
	"github.com/festa-dev/festa/pkg/sweeper"
)

// Config tunes the pipeline. Zero values fall back to package defaults.
type Config struct {
	AgentTimeout  time.Duration
	SweepSchedule string
	// QueueConfig enables the Redis feedback receiver when non-nil.
	QueueConfig map[string]any
	Tracer      trace.Tracer
}

type Manager struct {
	partyStore   *store.PartyStore
	registry     *registry.Registry
	orchestrator *orchestrator.Orchestrator
	publisher    message.Publisher
	subscribers  eventbus.SubscriberFactory
	logger       *slog.Logger
	config       Config

	bridge   *bridge.ClientBridge
	sweeper  *sweeper.Sweeper
	receiver *queue.Receiver
}

func NewManager(
	partyStore *store.PartyStore,
	reg *registry.Registry,
	orch *orchestrator.Orchestrator,
	pub message.Publisher,
	subs eventbus.SubscriberFactory,
	logger *slog.Logger,
	config Config,
) *Manager {
	return &Manager{
		partyStore:   partyStore,
		registry:     reg,
		orchestrator: orch,
		publisher:    pub,
		subscribers:  subs,
		logger:       logger.With("module", "planner"),
		config:       config,
	}
}

// Bridge exposes the client bridge for transports that register listeners.
// It is available after Start.
func (m *Manager) Bridge() *bridge.ClientBridge {
	return m.bridge
}

// Start brings the whole pipeline up. Each component gets its own named bus
// instance so they all see every envelope, on Kafka included, where sharing
// one consumer group would split the stream between them.
func (m *Manager) Start(ctx context.Context) error {
	for _, agentName := range m.registry.AgentNames() {
		agent, err := m.registry.CreateAgent(agentName, nil)
		if err != nil {
			return err
		}

		agentRunner := runner.NewAgentRunner(agent, m.partyStore, m.newBus("runner-"+agentName), m.logger, m.config.AgentTimeout, m.config.Tracer)

		err = agentRunner.Start(ctx)
		if err != nil {
			return err
		}
	}

	watcher := orchestrator.NewCompletionWatcher(m.partyStore, m.registry, m.newBus("watcher"), m.logger)

	err := watcher.Start(ctx)
	if err != nil {
		return err
	}

	m.bridge = bridge.NewClientBridge(m.partyStore, m.newBus("bridge"), m.logger)

	err = m.bridge.Start(ctx)
	if err != nil {
		return err
	}

	staleThreshold := m.config.AgentTimeout
	if staleThreshold <= 0 {
		staleThreshold = runner.DefaultTimeout
	}

	m.sweeper = sweeper.NewSweeper(m.partyStore, m.newBus("sweeper"), m.logger, m.config.SweepSchedule, staleThreshold)

	err = m.sweeper.Start(ctx)
	if err != nil {
		return err
	}

	if m.config.QueueConfig != nil {
		m.receiver, err = queue.NewReceiver(m.config.QueueConfig, m.logger)
		if err != nil {
			return err
		}

		err = m.receiver.Start(ctx, m.orchestrator)
		if err != nil {
			return err
		}
	}

	m.logger.InfoContext(ctx, "Planner pipeline started", "agents", m.registry.AgentNames())

	return nil
}

func (m *Manager) Stop(ctx context.Context) {
	if m.receiver != nil {
		err := m.receiver.Stop(ctx)
		if err != nil {
			m.logger.ErrorContext(ctx, "Failed to stop queue receiver", "error", err)
		}
	}

	if m.sweeper != nil {
		err := m.sweeper.Stop(ctx)
		if err != nil {
			m.logger.ErrorContext(ctx, "Failed to stop sweeper", "error", err)
		}
	}
}

func (m *Manager) newBus(consumerName string) eventbus.EventBus {
	return eventbus.NewWatermillEventBus(m.publisher, m.subscribers(consumerName))
}
