package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/persistence"
)

// PartyRepository handles party-related file operations.
type PartyRepository struct {
	root string // File system root for storing parties
}

// NewPartyRepository creates a new party repository.
func NewPartyRepository(root string) *PartyRepository {
	return &PartyRepository{root: root}
}

// GetByID retrieves a party by its ID from the file system.
func (pr *PartyRepository) GetByID(_ context.Context, partyID string) (*models.PartyState, error) {
	filePath := filepath.Clean(path.Join(pr.root, "parties", partyID+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, persistence.NewPartyError("GetByID", partyID, err)
	}

	var party models.PartyState

	err = json.Unmarshal(body, &party)
	if err != nil {
		return nil, persistence.NewPartyError("GetByID", partyID, err)
	}

	return &party, nil
}

// Save writes the full party state through to disk before returning.
func (pr *PartyRepository) Save(_ context.Context, party *models.PartyState) error {
	err := os.MkdirAll(path.Join(pr.root, "parties"), 0750)
	if err != nil {
		return persistence.NewPartyError("Save", party.PartyID, err)
	}

	now := time.Now().UTC()
	if party.CreatedAt.IsZero() {
		party.CreatedAt = now
	}

	// UpdatedAt strictly increases even when saves land within clock resolution.
	if !now.After(party.UpdatedAt) {
		now = party.UpdatedAt.Add(time.Nanosecond)
	}

	party.UpdatedAt = now

	data, err := json.MarshalIndent(party, "", "  ")
	if err != nil {
		return persistence.NewPartyError("Save", party.PartyID, err)
	}

	filePath := path.Join(pr.root, "parties", party.PartyID+".json")

	err = os.WriteFile(filePath, data, 0600)
	if err != nil {
		return persistence.NewPartyError("Save", party.PartyID, err)
	}

	return nil
}

// GetAll returns every stored party.
func (pr *PartyRepository) GetAll(ctx context.Context) ([]*models.PartyState, error) {
	root := os.DirFS(path.Join(pr.root, "parties"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list party files: %w", err)
	}

	parties := make([]*models.PartyState, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		partyID := file[:len(file)-5] // Remove .json extension

		party, err := pr.GetByID(ctx, partyID)
		if err != nil {
			return nil, err
		}

		if party != nil {
			parties = append(parties, party)
		}
	}

	return parties, nil
}

// ListActive returns the IDs of parties whose status is not terminal.
func (pr *PartyRepository) ListActive(ctx context.Context) ([]string, error) {
	parties, err := pr.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]string, 0, len(parties))

	for _, party := range parties {
		if !party.Status.IsTerminal() {
			active = append(active, party.PartyID)
		}
	}

	return active, nil
}

// Delete removes a party by its ID. Deleting an absent party is not an error.
func (pr *PartyRepository) Delete(_ context.Context, partyID string) error {
	filePath := path.Join(pr.root, "parties", partyID+".json")

	err := os.Remove(filePath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return persistence.NewPartyError("Delete", partyID, err)
	}

	return nil
}

// Stats reports the active party count and the total size of stored records.
func (pr *PartyRepository) Stats(ctx context.Context) (*persistence.Stats, error) {
	parties, err := pr.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &persistence.Stats{}

	for _, party := range parties {
		if !party.Status.IsTerminal() {
			stats.ActiveParties++
		}

		info, err := os.Stat(path.Join(pr.root, "parties", party.PartyID+".json"))
		if err == nil {
			stats.TotalSizeBytes += info.Size()
		}
	}

	return stats, nil
}
