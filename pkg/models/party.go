// Package models defines the core domain models for party plan orchestration
package models

import "time"

// PartyStatus represents the lifecycle state of a party workflow.
type PartyStatus string

const (
	PartyStatusPending   PartyStatus = "pending"   // Created, agents not yet triggered
	PartyStatusRunning   PartyStatus = "running"   // Agents triggered, results pending
	PartyStatusCompleted PartyStatus = "completed" // All required agents succeeded
	PartyStatusError     PartyStatus = "error"     // A required agent permanently failed
)

// IsTerminal reports whether the status allows no further transition
// without a new explicit trigger.
func (s PartyStatus) IsTerminal() bool {
	return s == PartyStatusCompleted || s == PartyStatusError
}

// AgentStatus represents the execution state of a single agent within a party.
type AgentStatus string

const (
	AgentStatusNotStarted AgentStatus = "not_started"
	AgentStatusRunning    AgentStatus = "running"
	AgentStatusCompleted  AgentStatus = "completed"
	AgentStatusFailed     AgentStatus = "failed"
)

// IsTerminal reports whether the agent reached a terminal state for the
// current execution.
func (s AgentStatus) IsTerminal() bool {
	return s == AgentStatusCompleted || s == AgentStatusFailed
}

// Input is one piece of user-provided planning material. Inputs are
// append-only within a party; agents always read the full accumulated list
// at execution time.
type Input struct {
	SourceType string         `json:"source_type" validate:"required"`
	Content    string         `json:"content"     validate:"required"`
	Tags       []string       `json:"tags,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	AddedAt    time.Time      `json:"added_at"`
}

// AgentResult holds the latest execution outcome for one agent in one party.
// Re-execution overwrites the previous result (last-write-wins); no attempt
// history is retained.
type AgentResult struct {
	AgentName       string         `json:"agent_name"`
	ExecutionID     string         `json:"execution_id,omitempty"`
	Status          AgentStatus    `json:"status"`
	Result          map[string]any `json:"result,omitempty"`
	Confidence      float64        `json:"confidence"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
	Error           string         `json:"error,omitempty"`
	ErrorType       string         `json:"error_type,omitempty"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}

// BudgetSnapshot is the aggregate budget view derived from the budget agent.
type BudgetSnapshot struct {
	Total       float64            `json:"total"`
	Currency    string             `json:"currency"`
	Allocations map[string]float64 `json:"allocations,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Plan is the assembled final artifact, one facet per contributing agent.
type Plan struct {
	Theme       map[string]any `json:"theme,omitempty"`
	Venue       map[string]any `json:"venue,omitempty"`
	Budget      map[string]any `json:"budget,omitempty"`
	Cake        map[string]any `json:"cake,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// PartyState is the full durable state of one orchestration run. It is owned
// by the party store and must only be mutated through its contract.
type PartyState struct {
	PartyID       string                  `json:"party_id"`
	Inputs        []Input                 `json:"inputs"       validate:"required,min=1"`
	AgentResults  map[string]*AgentResult `json:"agent_results"`
	Budget        *BudgetSnapshot         `json:"budget,omitempty"`
	FinalPlan     *Plan                   `json:"final_plan,omitempty"`
	Status        PartyStatus             `json:"status"`
	Metadata      map[string]any          `json:"metadata,omitempty"`
	CorrelationID string                  `json:"correlation_id,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// ResultFor returns the stored result for an agent, or nil when the agent has
// no recorded execution for this party.
func (p *PartyState) ResultFor(agentName string) *AgentResult {
	if p.AgentResults == nil {
		return nil
	}

	return p.AgentResults[agentName]
}

// RequiredAgentsTerminal reports whether every named agent has reached a
// terminal status, and whether all of them completed successfully.
func (p *PartyState) RequiredAgentsTerminal(required []string) (allTerminal, allCompleted bool) {
	allCompleted = true

	for _, name := range required {
		result := p.ResultFor(name)
		if result == nil || !result.Status.IsTerminal() {
			return false, false
		}

		if result.Status != AgentStatusCompleted {
			allCompleted = false
		}
	}

	return true, allCompleted
}
