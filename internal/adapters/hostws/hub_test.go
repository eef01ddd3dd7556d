package hostws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/VideoChat/internal/core"
	"github.com/dkeye/VideoChat/internal/core/coretest"
	"github.com/dkeye/VideoChat/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	return dialHubWith(t, h, nil)
}

func dialHubWith(t *testing.T, h *Hub, onLeave func()) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(context.Background(), w, r, onLeave)
	}))
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	require.Eventually(t, func() bool { return h.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	return ws
}

// wireEvent mirrors Event as the browser sees it, enums as text.
type wireEvent struct {
	Type    string `json:"type"`
	Surface string `json:"surface"`
	Error   string `json:"error"`
	Slot    struct {
		Index     int    `json:"index"`
		Role      string `json:"role"`
		Facing    string `json:"facing"`
		SessionID string `json:"session_id"`
	} `json:"slot"`
}

func readEvent(t *testing.T, ws *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev wireEvent
	require.NoError(t, ws.ReadJSON(&ev))
	return ev
}

func TestHubFansOutSlotEvents(t *testing.T) {
	h := NewHub("screen-1", Options{})
	ws := dialHub(t, h)

	info := core.SlotInfo{
		Index:     2,
		Role:      domain.RoleSubscriber,
		Region:    domain.DisplayRegion{Panel: domain.PanelRemote, Cell: 2},
		Facing:    domain.FacingFront,
		SessionID: "sess-2",
	}

	h.OnSlotAttached(info, coretest.Surface("surf-1"))
	ev := readEvent(t, ws)
	assert.Equal(t, EventSlotAttached, ev.Type)
	assert.Equal(t, "surf-1", ev.Surface)
	assert.Equal(t, 2, ev.Slot.Index)
	assert.Equal(t, "sess-2", ev.Slot.SessionID)
	assert.Equal(t, "subscriber", ev.Slot.Role)
	assert.Equal(t, "front", ev.Slot.Facing)

	h.OnSlotError(info, errors.New("boom"))
	ev = readEvent(t, ws)
	assert.Equal(t, EventSlotError, ev.Type)
	assert.Equal(t, "boom", ev.Error)

	h.OnSlotClosed(info)
	assert.Equal(t, EventSlotClosed, readEvent(t, ws).Type)
}

func TestHubForgetsClientOnDisconnect(t *testing.T) {
	h := NewHub("screen-1", Options{})
	ws := dialHub(t, h)

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return h.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	// Broadcasting to nobody is a no-op.
	h.OnSlotClosed(core.SlotInfo{})
}

func TestConnBackpressure(t *testing.T) {
	c := &Conn{send: make(chan []byte, 1)}

	require.NoError(t, c.TrySend([]byte("a")))
	assert.ErrorIs(t, c.TrySend([]byte("b")), ErrBackpressure)

	c.Close()
	c.Close()
	assert.ErrorIs(t, c.TrySend([]byte("c")), ErrConnClosed)
}

func TestHubsGetOrCreate(t *testing.T) {
	hs := NewHubs(Options{})

	a := hs.GetOrCreate("one")
	assert.Same(t, a, hs.GetOrCreate("one"))
	assert.NotSame(t, a, hs.GetOrCreate("two"))

	hs.Remove("one")
	assert.NotSame(t, a, hs.GetOrCreate("one"))

	hs.CloseAll()
	assert.Equal(t, 0, hs.Len())
}

func TestHubsReleaseIdle(t *testing.T) {
	hs := NewHubs(Options{})
	left := make(chan bool, 1)
	h := hs.GetOrCreate("one")
	ws := dialHubWith(t, h, func() { left <- hs.ReleaseIdle("one") })

	assert.False(t, hs.ReleaseIdle("one"), "watched hub stays")
	assert.Equal(t, 1, hs.Len())

	require.NoError(t, ws.Close())
	select {
	case gone := <-left:
		assert.True(t, gone)
	case <-time.After(5 * time.Second):
		t.Fatal("leave callback not called")
	}
	assert.Equal(t, 0, hs.Len())
	assert.True(t, hs.ReleaseIdle("missing"))
}
