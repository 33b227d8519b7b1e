package theme

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/protocol"
)

func request(contents ...string) protocol.ExecutionRequest {
	party := &models.PartyState{PartyID: "party-1"}
	for _, content := range contents {
		party.Inputs = append(party.Inputs, models.Input{SourceType: "user_request", Content: content})
	}

	return protocol.ExecutionRequest{PartyID: party.PartyID, ExecutionID: "exec-1", Party: party}
}

func TestExecuteMatchesJungleKeyword(t *testing.T) {
	t.Parallel()

	agent, err := NewAgent(nil)
	require.NoError(t, err)

	result, err := agent.Execute(context.Background(), request("jungle themed birthday party for 5 year old"))
	require.NoError(t, err)

	assert.Equal(t, "jungle", result.Result["theme"])
	assert.NotEmpty(t, result.Result["decorations"])
	assert.Greater(t, result.Confidence, 0.5)
}

func TestExecuteCountsKeywordHits(t *testing.T) {
	t.Parallel()

	agent, err := NewAgent(nil)
	require.NoError(t, err)

	weak, err := agent.Execute(context.Background(), request("a space party"))
	require.NoError(t, err)

	strong, err := agent.Execute(context.Background(), request("a space party with rocket games and astronaut costumes"))
	require.NoError(t, err)

	assert.Equal(t, "space", weak.Result["theme"])
	assert.Equal(t, "space", strong.Result["theme"])
	assert.Greater(t, strong.Confidence, weak.Confidence)
}

func TestExecuteFallsBackToDefault(t *testing.T) {
	t.Parallel()

	agent, err := NewAgent(map[string]any{"default_theme": "garden party"})
	require.NoError(t, err)

	result, err := agent.Execute(context.Background(), request("a nice birthday party"))
	require.NoError(t, err)

	assert.Equal(t, "garden party", result.Result["theme"])
	assert.InDelta(t, 0.3, result.Confidence, 0.001)
}
