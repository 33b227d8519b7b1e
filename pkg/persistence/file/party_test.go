package file

import (
	"context"
	"testing"
	"time"

	"github.com/festa-dev/festa/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParty(id string, status models.PartyStatus) *models.PartyState {
	return &models.PartyState{
		PartyID: id,
		Status:  status,
		Inputs: []models.Input{
			{SourceType: "text", Content: "jungle themed birthday party", AddedAt: time.Now().UTC()},
		},
		AgentResults: map[string]*models.AgentResult{},
	}
}

func TestPartyRepository_SaveAndGetByID(t *testing.T) {
	repo := NewPartyRepository(t.TempDir())
	ctx := context.Background()

	party := testParty("party-1", models.PartyStatusPending)
	require.NoError(t, repo.Save(ctx, party))
	assert.False(t, party.CreatedAt.IsZero())
	assert.False(t, party.UpdatedAt.IsZero())

	loaded, err := repo.GetByID(ctx, "party-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "party-1", loaded.PartyID)
	assert.Equal(t, models.PartyStatusPending, loaded.Status)
	assert.Len(t, loaded.Inputs, 1)
}

func TestPartyRepository_GetByID_Missing(t *testing.T) {
	repo := NewPartyRepository(t.TempDir())

	loaded, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestPartyRepository_GetByID_Idempotent(t *testing.T) {
	repo := NewPartyRepository(t.TempDir())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testParty("party-1", models.PartyStatusRunning)))

	first, err := repo.GetByID(ctx, "party-1")
	require.NoError(t, err)

	second, err := repo.GetByID(ctx, "party-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPartyRepository_UpdatedAtStrictlyIncreases(t *testing.T) {
	repo := NewPartyRepository(t.TempDir())
	ctx := context.Background()

	party := testParty("party-1", models.PartyStatusRunning)
	require.NoError(t, repo.Save(ctx, party))

	previous := party.UpdatedAt

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, party))
		assert.True(t, party.UpdatedAt.After(previous))

		previous = party.UpdatedAt
	}
}

func TestPartyRepository_ListActive(t *testing.T) {
	repo := NewPartyRepository(t.TempDir())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testParty("active-1", models.PartyStatusRunning)))
	require.NoError(t, repo.Save(ctx, testParty("active-2", models.PartyStatusPending)))
	require.NoError(t, repo.Save(ctx, testParty("done-1", models.PartyStatusCompleted)))
	require.NoError(t, repo.Save(ctx, testParty("failed-1", models.PartyStatusError)))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"active-1", "active-2"}, active)
}

func TestPartyRepository_Delete(t *testing.T) {
	repo := NewPartyRepository(t.TempDir())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testParty("party-1", models.PartyStatusRunning)))
	require.NoError(t, repo.Delete(ctx, "party-1"))

	loaded, err := repo.GetByID(ctx, "party-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Deleting an absent party is not an error.
	require.NoError(t, repo.Delete(ctx, "party-1"))
}

func TestPartyRepository_Stats(t *testing.T) {
	repo := NewPartyRepository(t.TempDir())
	ctx := context.Background()

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ActiveParties)
	assert.Zero(t, stats.TotalSizeBytes)

	require.NoError(t, repo.Save(ctx, testParty("party-1", models.PartyStatusRunning)))
	require.NoError(t, repo.Save(ctx, testParty("party-2", models.PartyStatusCompleted)))

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveParties)
	assert.Positive(t, stats.TotalSizeBytes)
}
