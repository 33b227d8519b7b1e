// Package file provides file-based persistence for party state, one JSON
// document per party.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/festa-dev/festa/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root      string
	partyRepo *PartyRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:      cleanRoot,
		partyRepo: NewPartyRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// PartyRepository returns the party repository implementation for file persistence.
func (fp *Persistence) PartyRepository() persistence.PartyRepository {
	return fp.partyRepo
}
