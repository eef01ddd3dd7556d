package hostws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/VideoChat/internal/core"
	"github.com/dkeye/VideoChat/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

const (
	EventSlotAttached = "slot_attached"
	EventSlotError    = "slot_error"
	EventSlotClosed   = "slot_closed"
)

var eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name:      "host_events_dropped",
	Namespace: "videochat",
	Help:      "UI events dropped because a client was too slow",
})

// Event is the JSON pushed to UI clients.
type Event struct {
	Type    string        `json:"type"`
	Slot    core.SlotInfo `json:"slot"`
	Surface string        `json:"surface,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4096
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 30 * time.Second
	}
	return o
}

// Hub is the core.Host of one call screen. It fans every slot event out to
// the websockets watching that screen.
type Hub struct {
	id   domain.ScreenID
	opts Options

	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

var _ core.Host = (*Hub)(nil)

func NewHub(id domain.ScreenID, opts Options) *Hub {
	return &Hub{id: id, opts: opts.withDefaults(), conns: make(map[*Conn]struct{})}
}

func (h *Hub) OnSlotAttached(info core.SlotInfo, surface core.Surface) {
	ev := Event{Type: EventSlotAttached, Slot: info}
	if surface != nil {
		ev.Surface = surface.ID()
	}
	h.broadcast(ev)
}

func (h *Hub) OnSlotError(info core.SlotInfo, err error) {
	h.broadcast(Event{Type: EventSlotError, Slot: info, Error: err.Error()})
}

func (h *Hub) OnSlotClosed(info core.SlotInfo) {
	h.broadcast(Event{Type: EventSlotClosed, Slot: info})
}

func (h *Hub) broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if err := c.sendJSON(ev); err != nil {
			eventsDropped.Inc()
			log.Warn().Err(err).Str("module", "hostws").Str("screen", string(h.id)).Str("event", ev.Type).Msg("event dropped")
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and streams events until the client leaves
// or ctx ends. onLeave, if set, runs after the client is dropped.
func (h *Hub) ServeWS(ctx context.Context, w http.ResponseWriter, r *http.Request, onLeave func()) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "hostws").Msg("ws upgrade")
		return
	}
	c := newConn(ws)
	h.add(c)
	log.Info().Str("module", "hostws").Str("screen", string(h.id)).Msg("UI connected")

	ctx, cancel := context.WithCancel(ctx)
	go c.writePump(ctx, h.opts.PingPeriod)
	go func() {
		defer func() {
			cancel()
			h.remove(c)
			c.Close()
			log.Info().Str("module", "hostws").Str("screen", string(h.id)).Msg("UI disconnected")
			if onLeave != nil {
				onLeave()
			}
		}()
		c.readPump(h.opts.ReadLimit, h.opts.PingPeriod*2)
	}()
}

func (h *Hub) add(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close drops every client.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[*Conn]struct{})
	h.mu.Unlock()
	for c := range conns {
		c.Close()
	}
}

// Hubs keeps one hub per screen so a UI can subscribe before or after the
// call starts.
type Hubs struct {
	opts Options

	mu   sync.RWMutex
	hubs map[domain.ScreenID]*Hub
}

func NewHubs(opts Options) *Hubs {
	return &Hubs{opts: opts, hubs: make(map[domain.ScreenID]*Hub)}
}

func (hs *Hubs) GetOrCreate(id domain.ScreenID) *Hub {
	hs.mu.RLock()
	h, ok := hs.hubs[id]
	hs.mu.RUnlock()
	if ok {
		return h
	}
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if h, ok = hs.hubs[id]; ok {
		return h
	}
	h = NewHub(id, hs.opts)
	hs.hubs[id] = h
	return h
}

func (hs *Hubs) Remove(id domain.ScreenID) {
	hs.mu.Lock()
	h, ok := hs.hubs[id]
	delete(hs.hubs, id)
	hs.mu.Unlock()
	if ok {
		h.Close()
	}
}

// ReleaseIdle forgets the hub of id if no UI is watching it. It reports
// whether the hub is gone.
func (hs *Hubs) ReleaseIdle(id domain.ScreenID) bool {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	h, ok := hs.hubs[id]
	if !ok {
		return true
	}
	if h.Len() > 0 {
		return false
	}
	delete(hs.hubs, id)
	return true
}

func (hs *Hubs) Len() int {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return len(hs.hubs)
}

func (hs *Hubs) CloseAll() {
	hs.mu.Lock()
	hubs := hs.hubs
	hs.hubs = make(map[domain.ScreenID]*Hub)
	hs.mu.Unlock()
	for _, h := range hubs {
		h.Close()
	}
}
