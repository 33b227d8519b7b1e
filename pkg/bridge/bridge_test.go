package bridge

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa-dev/festa/pkg/channels/gochannel"
	"github.com/festa-dev/festa/pkg/eventbus"
	"github.com/festa-dev/festa/pkg/events"
	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/persistence/file"
	"github.com/festa-dev/festa/pkg/store"
)

type failOnceListener struct {
	mu       sync.Mutex
	failures int
	received []ExternalMessage
}

func (l *failOnceListener) Send(message ExternalMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failures > 0 {
		l.failures--

		return errors.New("connection reset")
	}

	l.received = append(l.received, message)

	return nil
}

type testBridge struct {
	bridge  *ClientBridge
	store   *store.PartyStore
	publish eventbus.EventBus
}

func newTestBridge(t *testing.T) *testBridge {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	partyStore := store.NewPartyStore(file.NewPartyRepository(t.TempDir()), t.TempDir(), logger)

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	clientBridge := NewClientBridge(partyStore, eventbus.NewWatermillEventBus(pub, sub), logger)
	require.NoError(t, clientBridge.Start(context.Background()))

	return &testBridge{
		bridge:  clientBridge,
		store:   partyStore,
		publish: eventbus.NewWatermillEventBus(pub, sub),
	}
}

func (tb *testBridge) publishStarted(t *testing.T, partyID, agentName string) {
	t.Helper()

	event := events.AgentStarted{
		BaseEvent:   events.NewBaseEvent(events.AgentStartedEvent, partyID),
		AgentName:   agentName,
		ExecutionID: "exec-1",
	}
	require.NoError(t, tb.publish.Publish(context.Background(), partyID, event))
}

func drain(t *testing.T, listener *ChannelListener) ExternalMessage {
	t.Helper()

	select {
	case message := <-listener.Messages():
		return message
	case <-time.After(2 * time.Second):
		t.Fatal("expected a bridge message")

		return ExternalMessage{}
	}
}

func TestBridgeForwardsToRegisteredListener(t *testing.T) {
	tb := newTestBridge(t)

	listener := NewChannelListener(4)
	tb.bridge.Register("party-1", listener)

	tb.publishStarted(t, "party-1", "theme_agent")

	message := drain(t, listener)
	assert.Equal(t, "agent_started", message.Type)
	assert.Equal(t, "party-1", message.PartyID)
	assert.Equal(t, "theme_agent", message.Data["agent_name"])
}

func TestBridgeScopesMessagesByParty(t *testing.T) {
	tb := newTestBridge(t)

	listener := NewChannelListener(4)
	tb.bridge.Register("party-1", listener)

	// No listener for party-2: its messages drop silently.
	tb.publishStarted(t, "party-2", "venue_agent")
	tb.publishStarted(t, "party-1", "theme_agent")

	message := drain(t, listener)
	assert.Equal(t, "party-1", message.PartyID)

	select {
	case unexpected := <-listener.Messages():
		t.Fatalf("unexpected message for party %s", unexpected.PartyID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBridgePrunesFailedListener(t *testing.T) {
	tb := newTestBridge(t)

	flaky := &failOnceListener{failures: 1}
	healthy := NewChannelListener(4)
	tb.bridge.Register("party-1", flaky)
	tb.bridge.Register("party-1", healthy)

	tb.publishStarted(t, "party-1", "theme_agent")
	drain(t, healthy)

	tb.publishStarted(t, "party-1", "cake_agent")
	drain(t, healthy)

	// The flaky listener was pruned after its first failure and never saw
	// the second message.
	flaky.mu.Lock()
	defer flaky.mu.Unlock()
	assert.Empty(t, flaky.received)
}

func TestBridgeUnregister(t *testing.T) {
	tb := newTestBridge(t)

	listener := NewChannelListener(4)
	tb.bridge.Register("party-1", listener)
	tb.bridge.Unregister("party-1", listener)

	tb.publishStarted(t, "party-1", "theme_agent")

	select {
	case <-listener.Messages():
		t.Fatal("unregistered listener received a message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleControlPing(t *testing.T) {
	tb := newTestBridge(t)

	reply, err := tb.bridge.HandleControl(context.Background(), "party-1", "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", reply.Type)
	assert.Equal(t, "party-1", reply.PartyID)
}

func TestHandleControlStatus(t *testing.T) {
	tb := newTestBridge(t)
	ctx := context.Background()

	party, err := tb.store.CreateParty(ctx, []models.Input{
		{SourceType: "user_request", Content: "a party"},
	}, nil)
	require.NoError(t, err)

	reply, err := tb.bridge.HandleControl(ctx, party.PartyID, "status")
	require.NoError(t, err)
	assert.Equal(t, "status", reply.Type)
	assert.Equal(t, string(models.PartyStatusPending), reply.Data["status"])
}

func TestHandleControlUnknownCommand(t *testing.T) {
	tb := newTestBridge(t)

	_, err := tb.bridge.HandleControl(context.Background(), "party-1", "reboot")
	require.Error(t, err)
}

func TestChannelListenerClose(t *testing.T) {
	listener := NewChannelListener(1)
	listener.Close()

	err := listener.Send(ExternalMessage{Type: "agent_started"})
	assert.ErrorIs(t, err, ErrListenerClosed)
}
