// Package protocol defines the capability contract every planning agent
// implements.
package protocol

import (
	"context"

	"github.com/festa-dev/festa/pkg/models"
)

// ExecutionRequest carries everything an agent may read during one
// execution: the party's accumulated inputs and the other agents' results so
// far. Agents treat the state as read-only; all writes go through the party
// store.
type ExecutionRequest struct {
	PartyID       string
	ExecutionID   string
	ExecutionType string
	Party         *models.PartyState
}

// Inputs returns the full accumulated input list for the party.
func (r ExecutionRequest) Inputs() []models.Input {
	if r.Party == nil {
		return nil
	}

	return r.Party.Inputs
}

// CompletedResult returns another agent's completed result, or nil when that
// agent has not completed. Cross-agent reads are advisory: an agent must
// produce a result even when its preferred sibling result is absent.
func (r ExecutionRequest) CompletedResult(agentName string) *models.AgentResult {
	if r.Party == nil {
		return nil
	}

	result := r.Party.ResultFor(agentName)
	if result == nil || result.Status != models.AgentStatusCompleted {
		return nil
	}

	return result
}

// ExecutionResult is the structured outcome of one agent execution.
type ExecutionResult struct {
	Result     map[string]any
	Confidence float64
}

// Agent computes one facet of the party plan from the shared inputs. A
// returned error marks the execution failed; it never propagates past the
// runner.
type Agent interface {
	Name() string
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}

// AgentFactory builds a configured agent instance.
type AgentFactory func(config map[string]any) (Agent, error)
