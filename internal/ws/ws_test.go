package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midigurdy/core/internal/signalbus"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })

	return conn
}

func newTestHub(policy Policy) (*signalbus.Bus, *httptest.Server) {
	bus := signalbus.New(nil)
	hub := NewHub(bus, policy, nil)
	hub.window = 60 * time.Millisecond // shrink for fast tests

	srv := httptest.NewServer(hub)

	return bus, srv
}

func TestSysinfoHandshake(t *testing.T) {
	bus, srv := newTestHub(NewPolicy())
	_ = bus
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]any{"data": map[string]any{"id": "anything"}}))

	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, "sysinfo", msg.Name)
	assert.Equal(t, "mgurdyd", msg.Data["name"])
	assert.NotEmpty(t, msg.Data["client_id"])
}

// S9: a client never receives an event whose client_id equals its own.
func TestEchoSuppression(t *testing.T) {
	bus, srv := newTestHub(NewPolicy())
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]any{}))

	var greeting wsMessage
	require.NoError(t, conn.ReadJSON(&greeting))
	selfID, _ := greeting.Data["client_id"].(string)
	require.NotEmpty(t, selfID)

	ctx := signalbus.WithClientID(context.Background(), selfID)
	bus.Emit(ctx, "ui:brightness:changed", signalbus.Payload{"value": 50})

	bus.Emit(context.Background(), "ui:brightness:changed", signalbus.Payload{"value": 60})

	conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))

	var got wsMessage
	require.NoError(t, conn.ReadJSON(&got))

	assert.Equal(t, "ui:brightness:changed", got.Name)
	assert.EqualValues(t, 60, got.Data["value"])
}

// S10: an ALWAYS event fired repeatedly within the window yields
// exactly one message per tick, carrying the last payload.
func TestAlwaysEventCoalescesToLastPayload(t *testing.T) {
	bus, srv := newTestHub(NewPolicy("meter:level:changed"))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]any{}))

	var greeting wsMessage
	require.NoError(t, conn.ReadJSON(&greeting))

	for i := 0; i < 5; i++ {
		bus.Emit(context.Background(), "meter:level:changed", signalbus.Payload{"value": i})
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))

	var got wsMessage
	require.NoError(t, conn.ReadJSON(&got))

	assert.Equal(t, "meter:level:changed", got.Name)
	assert.EqualValues(t, 4, got.Data["value"])
}

func TestDefaultEventDeliversFirstImmediately(t *testing.T) {
	bus, srv := newTestHub(NewPolicy())
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]any{}))

	var greeting wsMessage
	require.NoError(t, conn.ReadJSON(&greeting))

	bus.Emit(context.Background(), "active:preset:main_volume:changed", signalbus.Payload{"value": 1})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))

	// The empty policy table does not list main_volume, so the name is
	// coerced to the summary event; it still arrives without waiting for
	// a tick.
	var got wsMessage
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "active:preset:changed", got.Name)
}

func TestUnknownActivePresetEventCoercesToSummary(t *testing.T) {
	bus, srv := newTestHub(NewPolicy())
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]any{}))

	var greeting wsMessage
	require.NoError(t, conn.ReadJSON(&greeting))

	bus.Emit(context.Background(), "active:preset:voices:melody:0:volume:changed", signalbus.Payload{"value": 1})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))

	var got wsMessage
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "active:preset:changed", got.Name)
}
