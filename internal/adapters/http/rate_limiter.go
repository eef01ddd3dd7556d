package http

import (
	"sync"
	"time"
)

// RateLimiter allows at most limit attempts per key in a sliding interval.
// Keys with no attempt inside the window are forgotten.
type RateLimiter struct {
	mu        sync.Mutex
	history   map[string][]time.Time
	limit     int
	interval  time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)
	rl.sweep(now, windowStart)

	fresh := freshAttempts(rl.history[key], windowStart)
	if len(fresh) >= rl.limit {
		rl.history[key] = fresh
		return false
	}

	rl.history[key] = append(fresh, now)
	return true
}

// sweep drops stale keys at most once per interval.
func (rl *RateLimiter) sweep(now, windowStart time.Time) {
	if now.Sub(rl.lastSweep) < rl.interval {
		return
	}
	rl.lastSweep = now
	for key, attempts := range rl.history {
		if fresh := freshAttempts(attempts, windowStart); len(fresh) == 0 {
			delete(rl.history, key)
		} else {
			rl.history[key] = fresh
		}
	}
}

func freshAttempts(attempts []time.Time, windowStart time.Time) []time.Time {
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}
