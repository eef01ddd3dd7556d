// Package coretest provides in-memory implementations of the core ports for
// tests. Nothing here calls TransportEvents; tests drive events by hand.
package coretest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/VideoChat/internal/core"
)

var ErrInjected = errors.New("injected failure")

// Transport records every session it opens.
type Transport struct {
	mu       sync.Mutex
	Sessions []*Session

	// FailNewSession makes NewSession fail for these session ids.
	FailNewSession map[string]bool
	// FailConnect, FailPublish and FailSubscribe apply to every new session.
	FailConnect   bool
	FailPublish   bool
	FailSubscribe bool
}

func (t *Transport) NewSession(cfg core.SessionConfig, events core.TransportEvents) (core.TransportSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailNewSession[cfg.SessionID] {
		return nil, ErrInjected
	}
	s := &Session{
		id:            fmt.Sprintf("%s#%d", cfg.SessionID, len(t.Sessions)),
		Config:        cfg,
		Events:        events,
		failConnect:   t.FailConnect,
		failPublish:   t.FailPublish,
		failSubscribe: t.FailSubscribe,
	}
	t.Sessions = append(t.Sessions, s)
	return s, nil
}

func (t *Transport) SessionCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Sessions)
}

func (t *Transport) Session(i int) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Sessions[i]
}

type Session struct {
	id     string
	Config core.SessionConfig
	Events core.TransportEvents

	failConnect   bool
	failPublish   bool
	failSubscribe bool

	mu           sync.Mutex
	Token        string
	Connects     int
	Disconnects  int
	Publishers   []*Endpoint
	Subscribers  []*Endpoint
	LastSettings core.PublisherSettings
}

func (s *Session) ID() string { return s.id }

func (s *Session) Connect(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failConnect {
		return ErrInjected
	}
	s.Token = token
	s.Connects++
	return nil
}

func (s *Session) Publish(settings core.PublisherSettings) (core.Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPublish {
		return nil, ErrInjected
	}
	ep := &Endpoint{surface: Surface(fmt.Sprintf("%s/pub/%d", s.id, len(s.Publishers)))}
	s.LastSettings = settings
	s.Publishers = append(s.Publishers, ep)
	return ep, nil
}

func (s *Session) Subscribe(stream core.RemoteStream) (core.Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSubscribe {
		return nil, ErrInjected
	}
	ep := &Endpoint{surface: Surface(fmt.Sprintf("%s/sub/%s", s.id, stream.StreamID()))}
	s.Subscribers = append(s.Subscribers, ep)
	return ep, nil
}

func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Disconnects++
	return nil
}

func (s *Session) DisconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Disconnects
}

type Endpoint struct {
	surface Surface

	mu     sync.Mutex
	Closes int
}

func (e *Endpoint) Surface() core.Surface { return e.surface }

func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Closes++
	return nil
}

func (e *Endpoint) CloseCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Closes
}

type Surface string

func (s Surface) ID() string { return string(s) }

type Stream string

func (s Stream) StreamID() string { return string(s) }

// Host records UI-host callbacks.
type Host struct {
	mu       sync.Mutex
	Attached []Attach
	Errors   []Failure
	Closed   []core.SlotInfo
}

type Attach struct {
	Slot    core.SlotInfo
	Surface core.Surface
}

type Failure struct {
	Slot core.SlotInfo
	Err  error
}

func (h *Host) OnSlotAttached(slot core.SlotInfo, surface core.Surface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Attached = append(h.Attached, Attach{Slot: slot, Surface: surface})
}

func (h *Host) OnSlotError(slot core.SlotInfo, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Errors = append(h.Errors, Failure{Slot: slot, Err: err})
}

func (h *Host) OnSlotClosed(slot core.SlotInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Closed = append(h.Closed, slot)
}

func (h *Host) Snapshot() (attached []Attach, errs []Failure, closed []core.SlotInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Attach(nil), h.Attached...), append([]Failure(nil), h.Errors...), append([]core.SlotInfo(nil), h.Closed...)
}
