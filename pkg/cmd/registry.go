// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/festa-dev/festa/pkg/agents/budget"
	"github.com/festa-dev/festa/pkg/agents/cake"
	"github.com/festa-dev/festa/pkg/agents/theme"
	"github.com/festa-dev/festa/pkg/agents/venue"
	"github.com/festa-dev/festa/pkg/registry"
)

// NewRegistry builds the registry with the closed set of native planning
// agents.
func NewRegistry(log *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(log)

	reg.RegisterAgent(theme.Descriptor(), theme.NewAgent)
	reg.RegisterAgent(venue.Descriptor(), venue.NewAgent)
	reg.RegisterAgent(budget.Descriptor(), budget.NewAgent)
	reg.RegisterAgent(cake.Descriptor(), cake.NewAgent)

	return reg
}
