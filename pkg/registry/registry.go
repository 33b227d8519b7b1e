// Package registry holds the closed, configuration-driven set of planning
// agents. The agent list is fixed at process start; there is no runtime
// plugin loading.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/protocol"
)

type Registry struct {
	logger      *slog.Logger
	descriptors map[string]*models.RegisteredAgent
	factories   map[string]protocol.AgentFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:      logger,
		descriptors: make(map[string]*models.RegisteredAgent),
		factories:   make(map[string]protocol.AgentFactory),
	}
}

// RegisterAgent adds one agent capability to the registry.
func (r *Registry) RegisterAgent(descriptor *models.RegisteredAgent, factory protocol.AgentFactory) {
	r.descriptors[descriptor.Name] = descriptor
	r.factories[descriptor.Name] = factory
}

// CreateAgent builds a configured agent. The config is validated against the
// agent's JSON schema before the factory runs.
func (r *Registry) CreateAgent(name string, config map[string]any) (protocol.Agent, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("agent '%s' not registered", name)
	}

	descriptor := r.descriptors[name]
	if descriptor.Schema != nil {
		err := validateConfig(descriptor.Schema, config)
		if err != nil {
			return nil, fmt.Errorf("invalid config for agent '%s': %w", name, err)
		}
	}

	return factory(config)
}

// AgentNames returns every registered agent name, sorted.
func (r *Registry) AgentNames() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// RequiredAgents returns the names of agents the final plan cannot complete
// without, sorted.
func (r *Registry) RequiredAgents() []string {
	names := make([]string, 0, len(r.descriptors))

	for name, descriptor := range r.descriptors {
		if descriptor.Required {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names
}

// Describe returns the descriptor for a registered agent.
func (r *Registry) Describe(name string) (*models.RegisteredAgent, bool) {
	descriptor, ok := r.descriptors[name]

	return descriptor, ok
}

// Plan is the trigger policy: it returns the agents whose prerequisites are
// satisfied by the given inputs. Unconditional agents are always selected.
func (r *Registry) Plan(inputs []models.Input) []string {
	selected := make([]string, 0, len(r.descriptors))

	for name, descriptor := range r.descriptors {
		if descriptor.Matches(inputs) {
			selected = append(selected, name)
		}
	}

	sort.Strings(selected)

	return selected
}

// HealthCheck reports whether the registry holds at least one agent.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.descriptors) == 0 {
		return "no agents registered", false
	}

	return fmt.Sprintf("%d agents registered", len(r.descriptors)), true
}
