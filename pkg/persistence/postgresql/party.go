package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/persistence"
)

// PartyRepository handles party-related database operations.
type PartyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPartyRepository creates a new party repository.
func NewPartyRepository(db *sql.DB, logger *slog.Logger) *PartyRepository {
	return &PartyRepository{db: db, logger: logger}
}

// Save persists the full party state in one upsert.
func (r *PartyRepository) Save(ctx context.Context, party *models.PartyState) error {
	now := time.Now().UTC()

	if party.CreatedAt.IsZero() {
		party.CreatedAt = now
	}

	if !now.After(party.UpdatedAt) {
		now = party.UpdatedAt.Add(time.Nanosecond)
	}

	party.UpdatedAt = now

	state, err := json.Marshal(party)
	if err != nil {
		return persistence.NewPartyError("Save", party.PartyID, err)
	}

	query := `
		INSERT INTO parties (party_id, state, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (party_id) DO UPDATE SET
			state = EXCLUDED.state,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, party.PartyID, state, string(party.Status), party.CreatedAt, party.UpdatedAt)
	if err != nil {
		return persistence.NewPartyError("Save", party.PartyID, err)
	}

	return nil
}

// GetByID returns the stored party state, or nil when absent.
func (r *PartyRepository) GetByID(ctx context.Context, partyID string) (*models.PartyState, error) {
	query := `SELECT state FROM parties WHERE party_id = $1`

	var state []byte

	err := r.db.QueryRowContext(ctx, query, partyID).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewPartyError("GetByID", partyID, err)
	}

	var party models.PartyState

	err = json.Unmarshal(state, &party)
	if err != nil {
		return nil, persistence.NewPartyError("GetByID", partyID, err)
	}

	return &party, nil
}

// GetAll returns every stored party, newest first.
func (r *PartyRepository) GetAll(ctx context.Context) ([]*models.PartyState, error) {
	query := `SELECT state FROM parties ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query parties: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.Error("failed to close rows", "error", err)
		}
	}()

	parties := make([]*models.PartyState, 0)

	for rows.Next() {
		var state []byte

		err := rows.Scan(&state)
		if err != nil {
			return nil, fmt.Errorf("failed to scan party: %w", err)
		}

		var party models.PartyState

		err = json.Unmarshal(state, &party)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal party: %w", err)
		}

		parties = append(parties, &party)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating parties: %w", err)
	}

	return parties, nil
}

// ListActive returns the IDs of parties whose status is not terminal.
func (r *PartyRepository) ListActive(ctx context.Context) ([]string, error) {
	query := `SELECT party_id FROM parties WHERE status IN ($1, $2) ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, string(models.PartyStatusPending), string(models.PartyStatusRunning))
	if err != nil {
		return nil, fmt.Errorf("failed to query active parties: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.Error("failed to close rows", "error", err)
		}
	}()

	ids := make([]string, 0)

	for rows.Next() {
		var id string

		err := rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to scan party id: %w", err)
		}

		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating active parties: %w", err)
	}

	return ids, nil
}

// Delete removes the party row. Deleting an absent party is not an error.
func (r *PartyRepository) Delete(ctx context.Context, partyID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM parties WHERE party_id = $1`, partyID)
	if err != nil {
		return persistence.NewPartyError("Delete", partyID, err)
	}

	return nil
}

// Stats reports the active party count and total stored size.
func (r *PartyRepository) Stats(ctx context.Context) (*persistence.Stats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status IN ($1, $2))
		  , COALESCE(SUM(pg_column_size(state)), 0)
		FROM parties
	`

	stats := &persistence.Stats{}

	err := r.db.QueryRowContext(ctx, query, string(models.PartyStatusPending), string(models.PartyStatusRunning)).
		Scan(&stats.ActiveParties, &stats.TotalSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to query party stats: %w", err)
	}

	return stats, nil
}
