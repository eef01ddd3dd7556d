package orch

import (
	"fmt"
	"sync"

	"github.com/dkeye/VideoChat/internal/app/slot"
	"github.com/dkeye/VideoChat/internal/core"
	"github.com/dkeye/VideoChat/internal/domain"
	"github.com/rs/zerolog/log"
)

var _ core.TransportEvents = (*Coordinator)(nil)

// Config is per call screen; nothing here is process-wide.
type Config struct {
	PublisherName string
}

// Coordinator drives the slots of one call screen through
// Idle -> Connecting -> Connected -> Publishing|Subscribing -> Closed and
// routes transport events back to the owning slot by handle identity.
//
// One mutex guards the slot list, the lookup tables and every transition.
// Host callbacks run after it is released.
type Coordinator struct {
	cfg       Config
	transport core.Transport
	host      core.Host

	mu         sync.Mutex
	closed     bool
	slots      []*slot.CameraSlot
	bySession  map[core.TransportSession]int
	byEndpoint map[core.Endpoint]int
}

func New(cfg Config, transport core.Transport, host core.Host) *Coordinator {
	if host == nil {
		host = nopHost{}
	}
	return &Coordinator{
		cfg:        cfg,
		transport:  transport,
		host:       host,
		bySession:  make(map[core.TransportSession]int),
		byEndpoint: make(map[core.Endpoint]int),
	}
}

// outbox collects host notifications while the lock is held.
type outbox []func()

func (o *outbox) add(fn func()) { *o = append(*o, fn) }

func (o outbox) flush() {
	for _, fn := range o {
		fn()
	}
}

// ConnectAll takes ownership of slots and starts them in order. It does not
// wait for any connect to complete. Every slot must be Idle and appear once;
// otherwise nothing is started. A coordinator that was torn down accepts no
// more slots.
func (c *Coordinator) ConnectAll(slots []*slot.CameraSlot) error {
	var out outbox

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w: coordinator torn down", domain.ErrInvalidState)
	}
	seen := make(map[*slot.CameraSlot]struct{}, len(slots))
	for _, s := range slots {
		if s == nil || s.State() != domain.SlotIdle {
			c.mu.Unlock()
			return fmt.Errorf("%w: connect all needs idle slots", domain.ErrInvalidState)
		}
		if _, dup := seen[s]; dup {
			c.mu.Unlock()
			return fmt.Errorf("%w: slot %d listed twice", domain.ErrInvalidState, s.Identity().Index)
		}
		seen[s] = struct{}{}
	}

	for _, s := range slots {
		idx := len(c.slots)
		c.slots = append(c.slots, s)
		slotsActive.Inc()

		sess, err := s.BeginConnect(c.transport, c)
		if err != nil {
			log.Error().Err(err).Str("module", "app.orch").Int("slot", s.Identity().Index).Msg("begin connect failed")
			c.closeSlot(idx, err, &out)
			continue
		}
		c.bySession[sess] = idx
		slotTransitions.WithLabelValues(domain.SlotConnecting.String()).Inc()
		log.Info().
			Str("module", "app.orch").
			Int("slot", s.Identity().Index).
			Str("role", s.Role().String()).
			Str("session_id", s.Identity().SessionID).
			Msg("slot connecting")
	}
	c.mu.Unlock()

	out.flush()
	return nil
}

func (c *Coordinator) OnSessionConnected(s core.TransportSession) {
	var out outbox
	defer func() { out.flush() }()

	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.bySession[s]
	if !ok {
		c.miss("session_connected")
		return
	}
	sl := c.slots[idx]
	if err := sl.MarkConnected(); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Int("slot", sl.Identity().Index).Msg("unexpected connect")
		return
	}
	slotTransitions.WithLabelValues(domain.SlotConnected.String()).Inc()

	if sl.Role() != domain.RolePublisher {
		return
	}
	ep, err := sl.AttachPublisher(core.PublisherSettings{
		Name:   c.cfg.PublisherName,
		Facing: sl.Identity().Facing,
	})
	if err != nil {
		c.closeSlot(idx, err, &out)
		return
	}
	c.attached(idx, ep, &out)
}

func (c *Coordinator) OnStreamAnnounced(s core.TransportSession, stream core.RemoteStream) {
	var out outbox
	defer func() { out.flush() }()

	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.bySession[s]
	if !ok {
		c.miss("stream_announced")
		return
	}
	sl := c.slots[idx]
	if sl.Role() != domain.RoleSubscriber {
		return
	}
	if sl.State() != domain.SlotConnected {
		log.Debug().
			Str("module", "app.orch").
			Int("slot", sl.Identity().Index).
			Str("state", sl.State().String()).
			Str("stream", stream.StreamID()).
			Msg("stream ignored")
		return
	}
	ep, err := sl.AttachSubscriber(stream)
	if err != nil {
		c.closeSlot(idx, err, &out)
		return
	}
	c.attached(idx, ep, &out)
}

func (c *Coordinator) OnStreamDestroyed(s core.TransportSession, stream core.RemoteStream) {
	var out outbox
	defer func() { out.flush() }()

	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.bySession[s]
	if !ok {
		c.miss("stream_destroyed")
		return
	}
	sl := c.slots[idx]
	if sl.Role() != domain.RoleSubscriber || sl.Stream() == nil || sl.Stream().StreamID() != stream.StreamID() {
		return
	}
	c.closeSlot(idx, nil, &out)
}

func (c *Coordinator) OnSessionDisconnected(s core.TransportSession) {
	var out outbox
	defer func() { out.flush() }()

	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.bySession[s]
	if !ok {
		c.miss("session_disconnected")
		return
	}
	c.closeSlot(idx, nil, &out)
}

func (c *Coordinator) OnSessionFailed(s core.TransportSession, err error) {
	var out outbox
	defer func() { out.flush() }()

	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.bySession[s]
	if !ok {
		c.miss("session_failed")
		return
	}
	c.closeSlot(idx, fmt.Errorf("%w: %v", domain.ErrConnectFailure, err), &out)
}

func (c *Coordinator) OnEndpointFailed(ep core.Endpoint, err error) {
	var out outbox
	defer func() { out.flush() }()

	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.byEndpoint[ep]
	if !ok {
		c.miss("endpoint_failed")
		return
	}
	kind := domain.ErrPublishFailure
	if c.slots[idx].Role() == domain.RoleSubscriber {
		kind = domain.ErrSubscribeFailure
	}
	c.closeSlot(idx, fmt.Errorf("%w: %v", kind, err), &out)
}

// TeardownAll releases every owned slot. It always succeeds and may be
// called any number of times.
func (c *Coordinator) TeardownAll() {
	var out outbox

	c.mu.Lock()
	c.closed = true
	for idx := range c.slots {
		c.closeSlot(idx, nil, &out)
	}
	clear(c.bySession)
	clear(c.byEndpoint)
	c.mu.Unlock()

	out.flush()
	log.Info().Str("module", "app.orch").Msg("teardown complete")
}

// Snapshot returns the status of every owned slot in ownership order.
func (c *Coordinator) Snapshot() []slot.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]slot.Status, 0, len(c.slots))
	for _, s := range c.slots {
		out = append(out, s.Status())
	}
	return out
}

func (c *Coordinator) attached(idx int, ep core.Endpoint, out *outbox) {
	sl := c.slots[idx]
	c.byEndpoint[ep] = idx
	slotTransitions.WithLabelValues(sl.State().String()).Inc()

	info := sl.Info()
	surface := ep.Surface()
	log.Info().
		Str("module", "app.orch").
		Int("slot", info.Index).
		Str("role", info.Role.String()).
		Str("state", sl.State().String()).
		Msg("endpoint attached")
	if surface == nil {
		log.Warn().Str("module", "app.orch").Int("slot", info.Index).Msg("endpoint has no surface")
		return
	}
	out.add(func() { c.host.OnSlotAttached(info, surface) })
}

// closeSlot must be called with c.mu held. Closed slots are skipped, so a
// late failure after teardown changes nothing.
func (c *Coordinator) closeSlot(idx int, err error, out *outbox) {
	sl := c.slots[idx]
	if sl.Closed() {
		return
	}
	if sess := sl.Session(); sess != nil {
		delete(c.bySession, sess)
	}
	if ep := sl.Endpoint(); ep != nil {
		delete(c.byEndpoint, ep)
	}
	sl.Close(err)
	slotsActive.Dec()
	slotTransitions.WithLabelValues(domain.SlotClosed.String()).Inc()

	info := sl.Info()
	logger := log.With().Str("module", "app.orch").Int("slot", info.Index).Str("role", info.Role.String()).Logger()
	if err != nil {
		slotFailures.WithLabelValues(failureKind(err)).Inc()
		logger.Warn().Err(err).Msg("slot closed on failure")
		out.add(func() { c.host.OnSlotError(info, err) })
	} else {
		logger.Info().Msg("slot closed")
	}
	out.add(func() { c.host.OnSlotClosed(info) })
}

func (c *Coordinator) miss(event string) {
	eventsDropped.WithLabelValues(event).Inc()
	log.Debug().Err(domain.ErrResolutionMiss).Str("module", "app.orch").Str("event", event).Msg("event dropped")
}

type nopHost struct{}

func (nopHost) OnSlotAttached(core.SlotInfo, core.Surface) {}
func (nopHost) OnSlotError(core.SlotInfo, error) {}
func (nopHost) OnSlotClosed(core.SlotInfo) {}
