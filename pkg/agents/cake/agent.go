// Package cake picks a cake flavor and size. Flavor comes from input
// keywords, size from the guest count, and decoration follows the theme
// agent's result when one is already available.
package cake

import (
	"context"
	"fmt"
	"strings"

	"github.com/festa-dev/festa/pkg/agents/inputscan"
	"github.com/festa-dev/festa/pkg/agents/theme"
	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/protocol"
)

const AgentName = "cake_agent"

const defaultGuests = 12

var flavors = []string{"chocolate", "vanilla", "strawberry", "lemon", "red velvet", "carrot"}

type Agent struct {
	defaultFlavor string
}

func NewAgent(config map[string]any) (protocol.Agent, error) {
	defaultFlavor := "vanilla"
	if value, ok := config["default_flavor"].(string); ok && value != "" {
		defaultFlavor = value
	}

	return &Agent{defaultFlavor: defaultFlavor}, nil
}

func (a *Agent) Name() string {
	return AgentName
}

func (a *Agent) Execute(_ context.Context, req protocol.ExecutionRequest) (*protocol.ExecutionResult, error) {
	text := inputscan.Text(req.Inputs())

	flavor := a.defaultFlavor
	confidence := 0.5

	for _, candidate := range flavors {
		if strings.Contains(text, candidate) {
			flavor = candidate
			confidence = 0.85

			break
		}
	}

	guests, ok := inputscan.GuestCount(req.Inputs())
	if !ok {
		guests = defaultGuests
	}

	var size string

	switch {
	case guests <= 10:
		size = "single tier"
	case guests <= 25:
		size = "two tier"
	default:
		size = "three tier"
	}

	decoration := "classic buttercream with sprinkles"
	if themed := req.CompletedResult(theme.AgentName); themed != nil {
		if name, okTheme := themed.Result["theme"].(string); okTheme && name != "" {
			decoration = fmt.Sprintf("%s themed fondant topper", name)
		}
	}

	return &protocol.ExecutionResult{
		Result: map[string]any{
			"flavor":     flavor,
			"size":       size,
			"servings":   guests + guests/4,
			"decoration": decoration,
		},
		Confidence: confidence,
	}, nil
}

// Descriptor describes the agent for registry registration.
func Descriptor() *models.RegisteredAgent {
	return &models.RegisteredAgent{
		Name:        AgentName,
		Description: "Recommends cake flavor, size and decoration for the party",
		Required:    true,
		Schema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"default_flavor": {
					Type:        "string",
					Description: "Flavor used when the inputs do not mention one",
					Default:     "vanilla",
				},
			},
		},
	}
}
