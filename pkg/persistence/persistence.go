// Package persistence defines the storage contract for party state.
package persistence

import (
	"context"

	"github.com/festa-dev/festa/pkg/models"
)

// Stats summarizes the stored population.
type Stats struct {
	ActiveParties  int   `json:"active_parties"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
}

// PartyRepository stores one durable record per party, keyed by party ID.
// Implementations are write-through: Save must durably persist the full state
// before returning.
type PartyRepository interface {
	// Save persists the full party state. CreatedAt is set on first save;
	// UpdatedAt strictly increases across saves of the same party.
	Save(ctx context.Context, party *models.PartyState) error

	// GetByID returns the stored state, or (nil, nil) when no party exists
	// for the given ID.
	GetByID(ctx context.Context, partyID string) (*models.PartyState, error)

	// ListActive returns the IDs of parties whose status is not terminal.
	ListActive(ctx context.Context) ([]string, error)

	// GetAll returns every stored party.
	GetAll(ctx context.Context) ([]*models.PartyState, error)

	// Delete removes all state for the party irreversibly. Deleting an
	// absent party is not an error.
	Delete(ctx context.Context, partyID string) error

	// Stats reports the number of active parties and the total stored size.
	Stats(ctx context.Context) (*Stats, error)
}

// Persistence is the storage backend root.
type Persistence interface {
	PartyRepository() PartyRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
