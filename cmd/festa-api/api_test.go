package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa-dev/festa/pkg/channels/gochannel"
	"github.com/festa-dev/festa/pkg/cmd"
	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/orchestrator"
	"github.com/festa-dev/festa/pkg/persistence/file"
	"github.com/festa-dev/festa/pkg/planner"
	"github.com/festa-dev/festa/pkg/store"
	"github.com/festa-dev/festa/pkg/web"
)

func setupTestAPI(t *testing.T) (*fiber.App, *orchestrator.Orchestrator) {
	t.Helper()

	logger := slog.Default()
	partyStore := store.NewPartyStore(file.NewPartyRepository(t.TempDir()), t.TempDir(), logger)
	registry := cmd.NewRegistry(logger)

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	api := NewAPI(logger, partyStore, registry, pub, sub)

	subs := func(string) message.Subscriber { return sub }

	manager := planner.NewManager(partyStore, registry, api.Orchestrator(), pub, subs, logger, planner.Config{})
	require.NoError(t, manager.Start(t.Context()))
	t.Cleanup(func() { manager.Stop(t.Context()) })

	return api.App(), api.Orchestrator()
}

func TestAPI_RootEndpoint(t *testing.T) {
	app, _ := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, resp.Body.Close())
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Festa API", string(body))
}

func TestAPI_HealthEndpoints(t *testing.T) {
	app, _ := setupTestAPI(t)

	for _, path := range []string{"/livez", "/readyz", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestAPI_PlansPartyEndToEnd(t *testing.T) {
	app, orch := setupTestAPI(t)

	payload, err := json.Marshal(web.CreatePartyRequest{
		Inputs: []string{"jungle themed birthday party for 5 year old with a budget of $300"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/parties/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var party models.PartyState
	require.NoError(t, json.Unmarshal(body, &party))

	require.Eventually(t, func() bool {
		state, stateErr := orch.Status(t.Context(), party.PartyID)
		if stateErr != nil {
			return false
		}

		return state.Status.IsTerminal()
	}, 5*time.Second, 20*time.Millisecond)

	final, err := orch.Status(t.Context(), party.PartyID)
	require.NoError(t, err)
	assert.Equal(t, models.PartyStatusCompleted, final.Status)
	require.NotNil(t, final.FinalPlan)
	assert.Equal(t, "jungle", final.FinalPlan.Theme["theme"])
}
