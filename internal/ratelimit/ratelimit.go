// Package ratelimit throttles room create/join attempts per client address.
package ratelimit

import (
	"time"

	"github.com/benbjohnson/clock"
)

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window counter keyed by client address.
// It is not safe for concurrent use; core.Hub serializes access.
type Limiter struct {
	clock   clock.Clock
	window  time.Duration
	max     int
	entries map[string]*entry
}

// New creates a limiter allowing max attempts per window. A nil clock uses wall time.
func New(clk clock.Clock, window time.Duration, max int) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	return &Limiter{
		clock:   clk,
		window:  window,
		max:     max,
		entries: make(map[string]*entry),
	}
}

// Allow records an attempt from addr and reports whether it may proceed.
func (l *Limiter) Allow(addr string) bool {
	now := l.clock.Now()

	e, ok := l.entries[addr]
	if !ok || now.After(e.resetAt) {
		l.entries[addr] = &entry{count: 1, resetAt: now.Add(l.window)}
		return true
	}

	if e.count >= l.max {
		return false
	}
	e.count++
	return true
}

// Sweep drops entries whose window has elapsed and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()
	removed := 0
	for addr, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, addr)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked addresses.
func (l *Limiter) Len() int {
	return len(l.entries)
}
