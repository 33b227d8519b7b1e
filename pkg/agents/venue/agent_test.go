package venue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa-dev/festa/pkg/agents/theme"
	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/protocol"
)

func request(party *models.PartyState) protocol.ExecutionRequest {
	return protocol.ExecutionRequest{PartyID: party.PartyID, ExecutionID: "exec-1", Party: party}
}

func partyWith(contents ...string) *models.PartyState {
	party := &models.PartyState{PartyID: "party-1"}
	for _, content := range contents {
		party.Inputs = append(party.Inputs, models.Input{SourceType: "user_request", Content: content})
	}

	return party
}

func TestExecuteSizesVenueToGuestCount(t *testing.T) {
	t.Parallel()

	agent, err := NewAgent(nil)
	require.NoError(t, err)

	small, err := agent.Execute(context.Background(), request(partyWith("party for 8 kids, all 7 years old")))
	require.NoError(t, err)
	assert.Equal(t, "backyard", small.Result["venue"])

	medium, err := agent.Execute(context.Background(), request(partyWith("expecting 20 guests, kids around 9 years old")))
	require.NoError(t, err)
	assert.Equal(t, "park pavilion", medium.Result["venue"])

	large, err := agent.Execute(context.Background(), request(partyWith("about 40 people, mostly 10 year olds")))
	require.NoError(t, err)
	assert.Equal(t, "community hall", large.Result["venue"])
	assert.Equal(t, true, large.Result["indoor"])
}

func TestExecutePrefersPlayCenterForToddlers(t *testing.T) {
	t.Parallel()

	agent, err := NewAgent(nil)
	require.NoError(t, err)

	result, err := agent.Execute(context.Background(), request(partyWith("birthday party for 3 year old with 15 kids")))
	require.NoError(t, err)

	assert.Equal(t, "indoor play center", result.Result["venue"])
}

func TestExecuteUsesThemeResultWhenAvailable(t *testing.T) {
	t.Parallel()

	agent, err := NewAgent(nil)
	require.NoError(t, err)

	party := partyWith("party for 8 kids")

	// Without the theme result the recommendation still comes back.
	bare, err := agent.Execute(context.Background(), request(party))
	require.NoError(t, err)
	assert.NotContains(t, bare.Result, "setup_note")

	now := time.Now().UTC()
	party.AgentResults = map[string]*models.AgentResult{
		theme.AgentName: {
			AgentName:   theme.AgentName,
			ExecutionID: "exec-0",
			Status:      models.AgentStatusCompleted,
			Result:      map[string]any{"theme": "jungle"},
			CompletedAt: &now,
		},
	}

	themed, err := agent.Execute(context.Background(), request(party))
	require.NoError(t, err)
	assert.Equal(t, "decorate for a jungle theme", themed.Result["setup_note"])
}

func TestExecuteLowersConfidenceWithoutGuestCount(t *testing.T) {
	t.Parallel()

	agent, err := NewAgent(nil)
	require.NoError(t, err)

	result, err := agent.Execute(context.Background(), request(partyWith("a birthday party")))
	require.NoError(t, err)

	assert.InDelta(t, 0.5, result.Confidence, 0.001)
}
