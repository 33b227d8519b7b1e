// Package venue recommends a party venue from guest count, age and the
// theme agent's result when it is already available.
package venue

import (
	"context"
	"fmt"

	"github.com/festa-dev/festa/pkg/agents/inputscan"
	"github.com/festa-dev/festa/pkg/agents/theme"
	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/protocol"
)

const AgentName = "venue_agent"

const defaultGuests = 12

type Agent struct{}

func NewAgent(_ map[string]any) (protocol.Agent, error) {
	return &Agent{}, nil
}

func (a *Agent) Name() string {
	return AgentName
}

func (a *Agent) Execute(_ context.Context, req protocol.ExecutionRequest) (*protocol.ExecutionResult, error) {
	guests, guestsKnown := inputscan.GuestCount(req.Inputs())
	if !guestsKnown {
		guests = defaultGuests
	}

	age, ageKnown := inputscan.Age(req.Inputs())

	var venue string

	var indoor bool

	switch {
	case ageKnown && age <= 4:
		venue = "indoor play center"
		indoor = true
	case guests <= 10:
		venue = "backyard"
	case guests <= 25:
		venue = "park pavilion"
	default:
		venue = "community hall"
		indoor = true
	}

	reason := fmt.Sprintf("fits %d guests", guests)
	if ageKnown && age <= 4 {
		reason = "soft play areas suit very young children"
	}

	confidence := 0.8
	if !guestsKnown {
		confidence = 0.5
	}

	result := map[string]any{
		"venue":    venue,
		"capacity": guests,
		"indoor":   indoor,
		"reason":   reason,
	}

	// Advisory cross-read: themed setup note when the theme agent already
	// completed. The recommendation stands without it.
	if themed := req.CompletedResult(theme.AgentName); themed != nil {
		if name, ok := themed.Result["theme"].(string); ok && name != "" {
			result["setup_note"] = fmt.Sprintf("decorate for a %s theme", name)
		}
	}

	return &protocol.ExecutionResult{Result: result, Confidence: confidence}, nil
}

// Descriptor describes the agent for registry registration.
func Descriptor() *models.RegisteredAgent {
	return &models.RegisteredAgent{
		Name:        AgentName,
		Description: "Recommends a venue sized to the guest count and age group",
		Required:    true,
		Schema:      &models.JSONSchema{Type: "object"},
	}
}
