package app

import (
	"sync"
	"time"

	"github.com/dkeye/VideoChat/internal/app/orch"
	"github.com/dkeye/VideoChat/internal/app/slot"
	"github.com/dkeye/VideoChat/internal/domain"
	"github.com/rs/zerolog/log"
)

type screenEntry struct {
	Coordinator *orch.Coordinator
	Side        domain.UserSide
	Opened      time.Time
}

// ScreenInfo is a read-only view of an open call screen.
type ScreenInfo struct {
	ID     domain.ScreenID `json:"id"`
	Side   domain.UserSide `json:"user"`
	Opened time.Time       `json:"opened"`
	Slots  []slot.Status   `json:"slots"`
}

// Registry tracks one coordinator per call screen.
type Registry struct {
	mu      sync.RWMutex
	screens map[domain.ScreenID]*screenEntry
}

func NewRegistry() *Registry {
	return &Registry{
		screens: make(map[domain.ScreenID]*screenEntry),
	}
}

// Open binds c to id. A screen already open under id is torn down first.
func (r *Registry) Open(id domain.ScreenID, side domain.UserSide, c *orch.Coordinator) {
	r.mu.Lock()
	old, ok := r.screens[id]
	r.screens[id] = &screenEntry{Coordinator: c, Side: side, Opened: time.Now()}
	r.mu.Unlock()

	if ok {
		old.Coordinator.TeardownAll()
		log.Info().Str("module", "app.registry").Str("screen", string(id)).Msg("replaced screen")
	}
	log.Info().Str("module", "app.registry").Str("screen", string(id)).Int("user", int(side)).Msg("opened screen")
}

func (r *Registry) Get(id domain.ScreenID) (*orch.Coordinator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.screens[id]; ok {
		return e.Coordinator, true
	}
	return nil, false
}

func (r *Registry) Info(id domain.ScreenID) (ScreenInfo, bool) {
	r.mu.RLock()
	e, ok := r.screens[id]
	r.mu.RUnlock()
	if !ok {
		return ScreenInfo{}, false
	}
	return ScreenInfo{ID: id, Side: e.Side, Opened: e.Opened, Slots: e.Coordinator.Snapshot()}, true
}

// Close tears down and forgets the screen. It reports whether one was open.
func (r *Registry) Close(id domain.ScreenID) bool {
	r.mu.Lock()
	e, ok := r.screens[id]
	delete(r.screens, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	e.Coordinator.TeardownAll()
	log.Info().Str("module", "app.registry").Str("screen", string(id)).Msg("closed screen")
	return true
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	entries := r.screens
	r.screens = make(map[domain.ScreenID]*screenEntry)
	r.mu.Unlock()

	for id, e := range entries {
		e.Coordinator.TeardownAll()
		log.Info().Str("module", "app.registry").Str("screen", string(id)).Msg("closed screen")
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.screens)
}
