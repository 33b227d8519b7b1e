package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/persistence"
	"github.com/festa-dev/festa/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *PartyStore {
	t.Helper()

	root := t.TempDir()

	return NewPartyStore(file.NewPartyRepository(root), root+"/backups", slog.Default())
}

func createTestParty(t *testing.T, s *PartyStore) *models.PartyState {
	t.Helper()

	party, err := s.CreateParty(context.Background(), []models.Input{
		{SourceType: "text", Content: "jungle themed birthday party for 5 year old"},
	}, map[string]any{"requested_by": "host"})
	require.NoError(t, err)

	return party
}

func TestPartyStore_CreateParty(t *testing.T) {
	s := newTestStore(t)

	party := createTestParty(t, s)
	assert.NotEmpty(t, party.PartyID)
	assert.Equal(t, models.PartyStatusPending, party.Status)
	assert.Len(t, party.Inputs, 1)
	assert.False(t, party.Inputs[0].AddedAt.IsZero())
}

func TestPartyStore_CreateParty_EmptyInputs(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateParty(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrEmptyInputs)

	_, err = s.CreateParty(context.Background(), []models.Input{}, nil)
	require.ErrorIs(t, err, ErrEmptyInputs)
}

func TestPartyStore_GetParty_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetParty(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsPartyNotFound(err))
}

func TestPartyStore_AgentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	party := createTestParty(t, s)

	state, err := s.SetAgentStarted(ctx, party.PartyID, "theme", "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.PartyStatusRunning, state.Status, "first agent start moves a pending party to running")

	result := state.ResultFor("theme")
	require.NotNil(t, result)
	assert.Equal(t, models.AgentStatusRunning, result.Status)
	assert.NotNil(t, result.StartedAt)

	state, err = s.SetAgentResult(ctx, party.PartyID, "theme", "exec-1",
		map[string]any{"theme": "jungle"}, 0.92, 15)
	require.NoError(t, err)

	result = state.ResultFor("theme")
	assert.Equal(t, models.AgentStatusCompleted, result.Status)
	assert.Equal(t, "jungle", result.Result["theme"])
	assert.InDelta(t, 0.92, result.Confidence, 0.001)
	assert.NotNil(t, result.CompletedAt)
}

func TestPartyStore_SetAgentFailed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	party := createTestParty(t, s)

	_, err := s.SetAgentStarted(ctx, party.PartyID, "venue", "exec-1")
	require.NoError(t, err)

	state, err := s.SetAgentFailed(ctx, party.PartyID, "venue", "exec-1", "no venue matched", "execution_error")
	require.NoError(t, err)

	result := state.ResultFor("venue")
	assert.Equal(t, models.AgentStatusFailed, result.Status)
	assert.Equal(t, "no venue matched", result.Error)
	assert.Equal(t, "execution_error", result.ErrorType)
}

func TestPartyStore_ReExecutionOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	party := createTestParty(t, s)

	_, err := s.SetAgentStarted(ctx, party.PartyID, "theme", "exec-1")
	require.NoError(t, err)
	_, err = s.SetAgentFailed(ctx, party.PartyID, "theme", "exec-1", "boom", "execution_error")
	require.NoError(t, err)

	// New execution replaces the failed one entirely.
	_, err = s.SetAgentStarted(ctx, party.PartyID, "theme", "exec-2")
	require.NoError(t, err)

	state, err := s.SetAgentResult(ctx, party.PartyID, "theme", "exec-2",
		map[string]any{"theme": "space"}, 0.8, 10)
	require.NoError(t, err)

	result := state.ResultFor("theme")
	assert.Equal(t, "exec-2", result.ExecutionID)
	assert.Equal(t, models.AgentStatusCompleted, result.Status)
	assert.Empty(t, result.Error)
}

func TestPartyStore_StatusNeverRegresses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	party := createTestParty(t, s)

	_, err := s.SetStatus(ctx, party.PartyID, models.PartyStatusCompleted)
	require.NoError(t, err)

	state, err := s.SetStatus(ctx, party.PartyID, models.PartyStatusRunning)
	require.NoError(t, err)
	assert.Equal(t, models.PartyStatusCompleted, state.Status)
}

func TestPartyStore_AppendInput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	party := createTestParty(t, s)

	state, err := s.AppendInput(ctx, party.PartyID, models.Input{
		SourceType: "feedback",
		Content:    "make the cake chocolate",
	})
	require.NoError(t, err)
	require.Len(t, state.Inputs, 2)
	assert.Equal(t, "feedback", state.Inputs[1].SourceType)
	assert.False(t, state.Inputs[1].AddedAt.IsZero())
}

func TestPartyStore_ConcurrentAgentWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	party := createTestParty(t, s)

	agents := []string{"theme", "venue", "budget", "cake"}

	var wg sync.WaitGroup

	for i, name := range agents {
		wg.Add(1)

		go func(name string, i int) {
			defer wg.Done()

			executionID := fmt.Sprintf("exec-%d", i)

			_, err := s.SetAgentStarted(ctx, party.PartyID, name, executionID)
			assert.NoError(t, err)

			_, err = s.SetAgentResult(ctx, party.PartyID, name, executionID,
				map[string]any{"agent": name}, 0.5, 1)
			assert.NoError(t, err)
		}(name, i)
	}

	wg.Wait()

	state, err := s.GetParty(ctx, party.PartyID)
	require.NoError(t, err)
	require.Len(t, state.AgentResults, len(agents), "concurrent writers must not clobber each other")

	for _, name := range agents {
		result := state.ResultFor(name)
		require.NotNil(t, result, "missing result for %s", name)
		assert.Equal(t, models.AgentStatusCompleted, result.Status)
	}
}

func TestPartyStore_BackupSurvivesDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	party := createTestParty(t, s)

	backupPath, err := s.Backup(ctx, party.PartyID)
	require.NoError(t, err)
	require.FileExists(t, backupPath)

	require.NoError(t, s.Delete(ctx, party.PartyID))

	_, err = s.GetParty(ctx, party.PartyID)
	require.Error(t, err)
	assert.True(t, persistence.IsPartyNotFound(err))

	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), party.PartyID)
}

func TestPartyStore_StatsAndListActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := createTestParty(t, s)
	second := createTestParty(t, s)

	_, err := s.SetStatus(ctx, second.PartyID, models.PartyStatusCompleted)
	require.NoError(t, err)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first.PartyID}, active)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveParties)
	assert.Positive(t, stats.TotalSizeBytes)
}
