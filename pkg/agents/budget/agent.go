// Package budget estimates a party budget and splits it across spending
// categories. A stated amount in the inputs wins; otherwise the estimate is
// sized per guest.
package budget

import (
	"context"
	"math"

	"github.com/festa-dev/festa/pkg/agents/inputscan"
	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/protocol"
)

const AgentName = "budget_agent"

const (
	defaultCurrency = "USD"
	defaultGuests   = 12
	perGuestRate    = 25.0
	minimumTotal    = 200.0
)

// Allocation shares per category. They sum to 1.
var shares = map[string]float64{
	"venue":         0.30,
	"food":          0.25,
	"cake":          0.15,
	"decorations":   0.15,
	"entertainment": 0.15,
}

type Agent struct {
	currency string
}

func NewAgent(config map[string]any) (protocol.Agent, error) {
	currency := defaultCurrency
	if value, ok := config["currency"].(string); ok && value != "" {
		currency = value
	}

	return &Agent{currency: currency}, nil
}

func (a *Agent) Name() string {
	return AgentName
}

func (a *Agent) Execute(_ context.Context, req protocol.ExecutionRequest) (*protocol.ExecutionResult, error) {
	total, stated := inputscan.Amount(req.Inputs())
	confidence := 0.9

	if !stated {
		guests, ok := inputscan.GuestCount(req.Inputs())
		if !ok {
			guests = defaultGuests
		}

		total = math.Max(minimumTotal, float64(guests)*perGuestRate)
		confidence = 0.6
	}

	allocations := make(map[string]float64, len(shares))
	for category, share := range shares {
		allocations[category] = math.Round(total*share*100) / 100
	}

	return &protocol.ExecutionResult{
		Result: map[string]any{
			"total":       total,
			"currency":    a.currency,
			"allocations": allocations,
			"estimated":   !stated,
		},
		Confidence: confidence,
	}, nil
}

// Descriptor describes the agent for registry registration.
func Descriptor() *models.RegisteredAgent {
	return &models.RegisteredAgent{
		Name:        AgentName,
		Description: "Estimates the party budget and allocates it across categories",
		Required:    true,
		Schema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"currency": {
					Type:        "string",
					Description: "Currency code reported with every estimate",
					Default:     defaultCurrency,
				},
			},
		},
	}
}
