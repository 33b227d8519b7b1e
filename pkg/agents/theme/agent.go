// Package theme derives a party theme from the accumulated inputs by
// keyword matching against a built-in theme catalog.
package theme

import (
	"context"
	"strings"

	"github.com/festa-dev/festa/pkg/agents/inputscan"
	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/protocol"
)

const AgentName = "theme_agent"

type catalogEntry struct {
	keywords    []string
	decorations []string
	colors      []string
	activities  []string
}

var catalog = map[string]catalogEntry{
	"jungle": {
		keywords:    []string{"jungle", "safari", "animal", "zoo", "wild"},
		decorations: []string{"vine garlands", "animal balloons", "leaf table runners"},
		colors:      []string{"green", "brown", "yellow"},
		activities:  []string{"animal mask crafting", "safari scavenger hunt"},
	},
	"space": {
		keywords:    []string{"space", "rocket", "astronaut", "galaxy", "planet"},
		decorations: []string{"glow-in-the-dark stars", "rocket centerpieces"},
		colors:      []string{"navy", "silver", "purple"},
		activities:  []string{"build a bottle rocket", "planet hunt"},
	},
	"princess": {
		keywords:    []string{"princess", "castle", "fairy", "royal", "tiara"},
		decorations: []string{"castle backdrop", "tulle streamers", "tiara favors"},
		colors:      []string{"pink", "gold", "lavender"},
		activities:  []string{"crown decorating", "royal ball dance"},
	},
	"pirate": {
		keywords:    []string{"pirate", "treasure", "ship", "buccaneer"},
		decorations: []string{"treasure chests", "jolly roger flags"},
		colors:      []string{"black", "red", "gold"},
		activities:  []string{"treasure hunt", "walk the plank game"},
	},
	"dinosaur": {
		keywords:    []string{"dinosaur", "dino", "t-rex", "jurassic"},
		decorations: []string{"dino footprints", "fossil dig table"},
		colors:      []string{"green", "orange"},
		activities:  []string{"fossil excavation", "dino egg hunt"},
	},
	"superhero": {
		keywords:    []string{"superhero", "hero", "cape", "comic"},
		decorations: []string{"comic burst cutouts", "cityscape backdrop"},
		colors:      []string{"red", "blue", "yellow"},
		activities:  []string{"cape decorating", "hero training course"},
	},
}

type Agent struct {
	defaultTheme string
}

func NewAgent(config map[string]any) (protocol.Agent, error) {
	defaultTheme := "classic celebration"
	if value, ok := config["default_theme"].(string); ok && value != "" {
		defaultTheme = value
	}

	return &Agent{defaultTheme: defaultTheme}, nil
}

func (a *Agent) Name() string {
	return AgentName
}

func (a *Agent) Execute(_ context.Context, req protocol.ExecutionRequest) (*protocol.ExecutionResult, error) {
	text := inputscan.Text(req.Inputs())

	bestTheme := ""
	bestHits := 0

	for name, entry := range catalog {
		hits := 0

		for _, keyword := range entry.keywords {
			if strings.Contains(text, keyword) {
				hits++
			}
		}

		if hits > bestHits || (hits == bestHits && hits > 0 && name < bestTheme) {
			bestTheme = name
			bestHits = hits
		}
	}

	if bestHits == 0 {
		return &protocol.ExecutionResult{
			Result: map[string]any{
				"theme":       a.defaultTheme,
				"decorations": []string{"balloons", "streamers", "banner"},
				"colors":      []string{"assorted"},
				"activities":  []string{"party games", "music"},
			},
			Confidence: 0.3,
		}, nil
	}

	entry := catalog[bestTheme]
	confidence := 0.6 + 0.1*float64(bestHits)

	if confidence > 0.95 {
		confidence = 0.95
	}

	return &protocol.ExecutionResult{
		Result: map[string]any{
			"theme":       bestTheme,
			"decorations": entry.decorations,
			"colors":      entry.colors,
			"activities":  entry.activities,
		},
		Confidence: confidence,
	}, nil
}

// Descriptor describes the agent for registry registration.
func Descriptor() *models.RegisteredAgent {
	return &models.RegisteredAgent{
		Name:        AgentName,
		Description: "Derives a party theme, decorations and activities from the request text",
		Required:    true,
		Schema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"default_theme": {
					Type:        "string",
					Description: "Theme used when no catalog keyword matches",
					Default:     "classic celebration",
				},
			},
		},
	}
}
