package network

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianChristoph/industrygame-sub000/internal/events"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

type countingRecorder struct {
	connections int
	rejected    []string
}

func (r *countingRecorder) RecordWSConnection(d int)       { r.connections += d }
func (r *countingRecorder) RecordWSMessage(bool)           {}
func (r *countingRecorder) RecordWSRejected(reason string) { r.rejected = append(r.rejected, reason) }

type wireMessage struct {
	Type    string          `json:"type"`
	Ping    int64           `json:"ping"`
	Payload json.RawMessage `json:"payload"`
}

// readUntil reads frames until a message of type typ arrives. Frames may
// carry several newline separated messages.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err)
		for _, line := range bytes.Split(frame, []byte{'\n'}) {
			var m wireMessage
			require.NoError(t, json.Unmarshal(line, &m))
			if m.Type == typ {
				return m
			}
		}
	}
}

func startHub(t *testing.T, opts HubOptions) (*Hub, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub(opts, nil, logger.Discard())
	go hub.Run(ctx)
	return hub, ctx
}

func dial(t *testing.T, hub *Hub, d *Dispatcher) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(ServeWS(hub, d))
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_ActionOverWebsocketGetsResult(t *testing.T) {
	// Arrange
	e := newEngine(t)
	hub, _ := startHub(t, DefaultHubOptions())
	conn := dial(t, hub, newDispatcher(t, e))

	// Act
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ADD_LINE","lineId":"pump","name":"Pump","requestId":"r1"}`)))
	msg := readUntil(t, conn, MsgTypeResult)

	// Assert
	var res ActionResult
	require.NoError(t, json.Unmarshal(msg.Payload, &res))
	assert.True(t, res.OK)
	assert.Equal(t, "r1", res.RequestID)
	_, err := e.Line("pump")
	assert.NoError(t, err)
}

func TestHub_SnapshotAfterEachPing(t *testing.T) {
	e := newEngine(t)
	hub, _ := startHub(t, DefaultHubOptions())
	conn := dial(t, hub, newDispatcher(t, e))
	detach := hub.AttachEngine(e)
	defer detach()

	e.Step(1)
	msg := readUntil(t, conn, MsgTypeSnapshot)

	assert.Equal(t, int64(1), msg.Ping)
	var snap map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Payload, &snap))
	assert.Equal(t, float64(1), snap["ping"])
}

func TestHub_EventPollerForwardsNewEventsOnly(t *testing.T) {
	// Arrange
	e := newEngine(t)
	opts := DefaultHubOptions()
	opts.EventPollInterval = 10 * time.Millisecond
	hub, ctx := startHub(t, opts)
	require.NoError(t, e.AddProductionLine("old", "Old"))
	conn := dial(t, hub, newDispatcher(t, e))
	hub.StartEventPoller(ctx, e.EventLog())

	// Act
	require.NoError(t, e.AddProductionLine("new", "New"))
	msg := readUntil(t, conn, MsgTypeEvent)

	// Assert
	var ev events.GameEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &ev))
	assert.Equal(t, events.EventTypeLineAdded, ev.Type)
	assert.Equal(t, "new", ev.ActorID)
}

func TestClient_RateLimitRejectsBurst(t *testing.T) {
	rec := &countingRecorder{}
	opts := DefaultHubOptions()
	opts.MaxMessagesPerSecond = 0.001
	opts.MessageBurst = 1
	hub := NewHub(opts, rec, logger.Discard())
	c := NewClient(hub, nil, newDispatcher(t, newEngine(t)))

	first := c.handle([]byte(`{"type":"ADD_LINE","lineId":"a","name":"A"}`))
	second := c.handle([]byte(`{"type":"ADD_LINE","lineId":"b","name":"B"}`))

	assert.Equal(t, MsgTypeResult, first.Type)
	assert.Equal(t, MsgTypeError, second.Type)
	assert.Equal(t, []string{"rate_limited"}, rec.rejected)
}

func TestClient_InvalidMessageCounted(t *testing.T) {
	rec := &countingRecorder{}
	hub := NewHub(DefaultHubOptions(), rec, logger.Discard())
	c := NewClient(hub, nil, newDispatcher(t, newEngine(t)))

	msg := c.handle([]byte(`{"type":"NOPE"}`))

	assert.Equal(t, MsgTypeResult, msg.Type)
	assert.False(t, msg.Payload.(ActionResult).OK)
	assert.Equal(t, []string{"invalid"}, rec.rejected)
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	opts := DefaultHubOptions()
	opts.BroadcastBuffer = 1
	hub := NewHub(opts, nil, logger.Discard())

	first := hub.Broadcast(Message{Type: MsgTypeEvent})
	second := hub.Broadcast(Message{Type: MsgTypeEvent})

	assert.True(t, first)
	assert.False(t, second)
}

func TestServeWS_RefusesOverCapacity(t *testing.T) {
	opts := DefaultHubOptions()
	opts.MaxClients = 1
	hub, _ := startHub(t, opts)
	d := newDispatcher(t, newEngine(t))
	dial(t, hub, d)

	srv := httptest.NewServer(ServeWS(hub, d))
	defer srv.Close()
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)
}
