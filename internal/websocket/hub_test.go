package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-messenger/internal/config"
	"im-messenger/internal/imtypes"
)

type testServer struct {
	hub      *Hub
	commands chan imtypes.Command
	srv      *httptest.Server
	cancel   context.CancelFunc
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{
		hub:      NewHub(nil),
		commands: make(chan imtypes.Command, 16),
		cancel:   cancel,
	}
	go ts.hub.Run(ctx)

	handler := CommandHandlerFunc(func(ctx context.Context, cmd imtypes.Command) error {
		ts.commands <- cmd
		return nil
	})
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(ts.hub, handler, w, r, config.WebSocketConfig{}, nil)
	}))
	t.Cleanup(func() {
		cancel()
		ts.srv.Close()
	})
	return ts
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// sync sends a command and waits for the handler, which proves the client is
// registered with the hub.
func (ts *testServer) sync(t *testing.T, conn *websocket.Conn) imtypes.Command {
	t.Helper()
	require.NoError(t, conn.WriteJSON(imtypes.Command{Type: imtypes.TypingPingCommand, TargetID: "c-sync"}))
	select {
	case cmd := <-ts.commands:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("command was not handled")
		return imtypes.Command{}
	}
}

func readChange(t *testing.T, conn *websocket.Conn) imtypes.Change {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var change imtypes.Change
	require.NoError(t, json.Unmarshal(data, &change))
	return change
}

func TestHubBroadcastsChangesToAllClients(t *testing.T) {
	ts := newTestServer(t)
	first := ts.dial(t)
	second := ts.dial(t)
	ts.sync(t, first)
	ts.sync(t, second)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ts.hub.Publish(imtypes.Change{Kind: imtypes.MessageAppended, TargetID: "c-trinity", MessageID: "m-1", At: at})

	for _, conn := range []*websocket.Conn{first, second} {
		change := readChange(t, conn)
		assert.Equal(t, imtypes.MessageAppended, change.Kind)
		assert.Equal(t, "c-trinity", change.TargetID)
		assert.Equal(t, "m-1", change.MessageID)
		assert.True(t, at.Equal(change.At))
	}
}

func TestClientSkipsMalformedFrames(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.WriteJSON(imtypes.Command{Type: imtypes.ReactionToggleCommand, MessageID: "m-t3", Emoji: "🔥"}))

	select {
	case cmd := <-ts.commands:
		assert.Equal(t, imtypes.ReactionToggleCommand, cmd.Type)
		assert.Equal(t, "m-t3", cmd.MessageID)
		assert.Equal(t, "🔥", cmd.Emoji)
	case <-time.After(2 * time.Second):
		t.Fatal("command was not handled")
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)
	ts.sync(t, conn)

	ts.cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "unexpected error: %v", err)
}

func TestPublishAfterShutdownDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		for i := 0; i < 512; i++ {
			hub.Publish(imtypes.Change{Kind: imtypes.TypingChanged, TargetID: "c-crew"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked after shutdown")
	}
}

func TestNewPumpConfigDefaults(t *testing.T) {
	pc := newPumpConfig(config.WebSocketConfig{})
	assert.Equal(t, writeWait, pc.writeWait)
	assert.Equal(t, pongWait, pc.pongWait)
	assert.Equal(t, pingPeriod, pc.pingPeriod)
	assert.Equal(t, int64(maxMessageSize), pc.maxMessageSize)

	pc = newPumpConfig(config.WebSocketConfig{PongWaitSeconds: 10, PingPeriodSeconds: 30, MaxMessageSizeBytes: 1024})
	assert.Equal(t, 9*time.Second, pc.pingPeriod)
	assert.Equal(t, int64(1024), pc.maxMessageSize)
}
