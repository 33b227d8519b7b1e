// Package store implements the party state store: keyed, write-through
// storage for workflow state with per-party mutual exclusion around every
// read-modify-write. All mutation of PartyState must go through this
// package; callers never read-modify-write state themselves.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path"
	"sync"
	"time"

	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/persistence"
	"github.com/google/uuid"
)

// ErrEmptyInputs indicates a party cannot be created without inputs.
var ErrEmptyInputs = errors.New("party requires at least one input")

// PartyStore owns the lifetime of PartyState records. Two agents completing
// concurrently for the same party serialize on a per-party lock, so partial
// updates to agent_results never clobber each other.
type PartyStore struct {
	repo      persistence.PartyRepository
	logger    *slog.Logger
	backupDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPartyStore creates a party store over the given repository. Backups are
// written under backupDir.
func NewPartyStore(repo persistence.PartyRepository, backupDir string, logger *slog.Logger) *PartyStore {
	return &PartyStore{
		repo:      repo,
		logger:    logger.With("module", "party_store"),
		backupDir: backupDir,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *PartyStore) lockParty(partyID string) func() {
	s.mu.Lock()

	lock, ok := s.locks[partyID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[partyID] = lock
	}

	s.mu.Unlock()
	lock.Lock()

	return lock.Unlock
}

func (s *PartyStore) releaseLockEntry(partyID string) {
	s.mu.Lock()
	delete(s.locks, partyID)
	s.mu.Unlock()
}

// CreateParty persists the initial state for a new party and returns it.
// Fails with ErrEmptyInputs when no inputs are given.
func (s *PartyStore) CreateParty(ctx context.Context, inputs []models.Input, metadata map[string]any) (*models.PartyState, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInputs
	}

	now := time.Now().UTC()
	for i := range inputs {
		if inputs[i].AddedAt.IsZero() {
			inputs[i].AddedAt = now
		}
	}

	party := &models.PartyState{
		PartyID:      uuid.New().String(),
		Inputs:       inputs,
		AgentResults: make(map[string]*models.AgentResult),
		Status:       models.PartyStatusPending,
		Metadata:     metadata,
	}

	err := s.repo.Save(ctx, party)
	if err != nil {
		return nil, err
	}

	return party, nil
}

// GetParty returns the stored state or ErrPartyNotFound.
func (s *PartyStore) GetParty(ctx context.Context, partyID string) (*models.PartyState, error) {
	party, err := s.repo.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}

	if party == nil {
		return nil, persistence.NewPartyError("GetParty", partyID, persistence.ErrPartyNotFound)
	}

	return party, nil
}

// mutate performs one serialized read-modify-write cycle. The state is
// persisted before mutate returns (write-through).
func (s *PartyStore) mutate(ctx context.Context, partyID string, apply func(*models.PartyState) error) (*models.PartyState, error) {
	unlock := s.lockParty(partyID)
	defer unlock()

	party, err := s.GetParty(ctx, partyID)
	if err != nil {
		return nil, err
	}

	err = apply(party)
	if err != nil {
		return nil, err
	}

	err = s.repo.Save(ctx, party)
	if err != nil {
		return nil, err
	}

	return party, nil
}

// AppendInput adds one input to the party. Inputs are append-only; agents
// executing later see the accumulated list.
func (s *PartyStore) AppendInput(ctx context.Context, partyID string, input models.Input) (*models.PartyState, error) {
	return s.mutate(ctx, partyID, func(party *models.PartyState) error {
		if input.AddedAt.IsZero() {
			input.AddedAt = time.Now().UTC()
		}

		party.Inputs = append(party.Inputs, input)

		return nil
	})
}

// SetCorrelation records the correlation ID threading the party's initial
// event cascade.
func (s *PartyStore) SetCorrelation(ctx context.Context, partyID, correlationID string) (*models.PartyState, error) {
	return s.mutate(ctx, partyID, func(party *models.PartyState) error {
		party.CorrelationID = correlationID

		return nil
	})
}

// MergeMetadata merges the given keys into the party metadata.
func (s *PartyStore) MergeMetadata(ctx context.Context, partyID string, metadata map[string]any) (*models.PartyState, error) {
	return s.mutate(ctx, partyID, func(party *models.PartyState) error {
		if party.Metadata == nil {
			party.Metadata = make(map[string]any)
		}

		for k, v := range metadata {
			party.Metadata[k] = v
		}

		return nil
	})
}

// SetStatus transitions the party status. Terminal statuses are sticky: a
// completed or errored party never moves back to running.
func (s *PartyStore) SetStatus(ctx context.Context, partyID string, status models.PartyStatus) (*models.PartyState, error) {
	return s.mutate(ctx, partyID, func(party *models.PartyState) error {
		if party.Status.IsTerminal() && party.Status != status {
			s.logger.WarnContext(ctx, "Ignoring status transition out of terminal state",
				"party_id", partyID, "from", party.Status, "to", status)

			return nil
		}

		party.Status = status

		return nil
	})
}

// SetAgentStarted records a fresh execution for the agent. Re-execution
// overwrites the previous result (last-write-wins per agent per party).
func (s *PartyStore) SetAgentStarted(ctx context.Context, partyID, agentName, executionID string) (*models.PartyState, error) {
	return s.mutate(ctx, partyID, func(party *models.PartyState) error {
		now := time.Now().UTC()

		if party.AgentResults == nil {
			party.AgentResults = make(map[string]*models.AgentResult)
		}

		party.AgentResults[agentName] = &models.AgentResult{
			AgentName:   agentName,
			ExecutionID: executionID,
			Status:      models.AgentStatusRunning,
			StartedAt:   &now,
		}

		if party.Status == models.PartyStatusPending {
			party.Status = models.PartyStatusRunning
		}

		return nil
	})
}

// SetAgentResult records a completed execution for the agent.
func (s *PartyStore) SetAgentResult(ctx context.Context, partyID, agentName, executionID string, result map[string]any, confidence float64, executionTimeMs int64) (*models.PartyState, error) {
	return s.mutate(ctx, partyID, func(party *models.PartyState) error {
		now := time.Now().UTC()

		entry := party.ResultFor(agentName)
		if entry == nil || entry.ExecutionID != executionID {
			entry = &models.AgentResult{AgentName: agentName, ExecutionID: executionID}

			if party.AgentResults == nil {
				party.AgentResults = make(map[string]*models.AgentResult)
			}

			party.AgentResults[agentName] = entry
		}

		entry.Status = models.AgentStatusCompleted
		entry.Result = result
		entry.Confidence = confidence
		entry.ExecutionTimeMs = executionTimeMs
		entry.Error = ""
		entry.ErrorType = ""
		entry.CompletedAt = &now

		return nil
	})
}

// SetAgentFailed records a failed execution for the agent.
func (s *PartyStore) SetAgentFailed(ctx context.Context, partyID, agentName, executionID, errorMessage, errorType string) (*models.PartyState, error) {
	return s.mutate(ctx, partyID, func(party *models.PartyState) error {
		now := time.Now().UTC()

		entry := party.ResultFor(agentName)
		if entry == nil || entry.ExecutionID != executionID {
			entry = &models.AgentResult{AgentName: agentName, ExecutionID: executionID}

			if party.AgentResults == nil {
				party.AgentResults = make(map[string]*models.AgentResult)
			}

			party.AgentResults[agentName] = entry
		}

		entry.Status = models.AgentStatusFailed
		entry.Error = errorMessage
		entry.ErrorType = errorType
		entry.CompletedAt = &now

		return nil
	})
}

// SetBudget stores the aggregate budget snapshot.
func (s *PartyStore) SetBudget(ctx context.Context, partyID string, budget *models.BudgetSnapshot) (*models.PartyState, error) {
	return s.mutate(ctx, partyID, func(party *models.PartyState) error {
		party.Budget = budget

		return nil
	})
}

// SetPlan stores the assembled final plan and the resulting terminal status.
func (s *PartyStore) SetPlan(ctx context.Context, partyID string, plan *models.Plan, status models.PartyStatus) (*models.PartyState, error) {
	return s.mutate(ctx, partyID, func(party *models.PartyState) error {
		party.FinalPlan = plan

		if !party.Status.IsTerminal() {
			party.Status = status
		}

		return nil
	})
}

// ListActive returns the IDs of non-terminal parties.
func (s *PartyStore) ListActive(ctx context.Context) ([]string, error) {
	return s.repo.ListActive(ctx)
}

// GetAll returns every stored party.
func (s *PartyStore) GetAll(ctx context.Context) ([]*models.PartyState, error) {
	return s.repo.GetAll(ctx)
}

// Stats reports the stored population summary.
func (s *PartyStore) Stats(ctx context.Context) (*persistence.Stats, error) {
	return s.repo.Stats(ctx)
}

// Backup writes a point-in-time export of the party state and returns its
// path. The export is independent of the live record: it remains readable
// after the party is deleted.
func (s *PartyStore) Backup(ctx context.Context, partyID string) (string, error) {
	unlock := s.lockParty(partyID)
	defer unlock()

	party, err := s.GetParty(ctx, partyID)
	if err != nil {
		return "", err
	}

	err = os.MkdirAll(s.backupDir, 0750)
	if err != nil {
		return "", persistence.NewPartyError("Backup", partyID, err)
	}

	data, err := json.MarshalIndent(party, "", "  ")
	if err != nil {
		return "", persistence.NewPartyError("Backup", partyID, err)
	}

	backupPath := path.Join(s.backupDir, partyID+"-"+time.Now().UTC().Format("20060102T150405Z")+".json")

	err = os.WriteFile(backupPath, data, 0600)
	if err != nil {
		return "", persistence.NewPartyError("Backup", partyID, persistence.ErrBackupFailed)
	}

	return backupPath, nil
}

// Delete removes all state for the party irreversibly.
func (s *PartyStore) Delete(ctx context.Context, partyID string) error {
	unlock := s.lockParty(partyID)

	err := s.repo.Delete(ctx, partyID)

	unlock()
	s.releaseLockEntry(partyID)

	return err
}
