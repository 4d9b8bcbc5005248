// Package ratelimit caps registration submissions per client IP in fixed windows.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultWindow is the length of one counting window.
	DefaultWindow = time.Hour
	// DefaultMax is the number of accepted submissions per IP per window.
	DefaultMax = 5
)

// Limiter decides whether a request from ip may proceed.
type Limiter interface {
	Allow(ctx context.Context, ip string) (bool, error)
}

type counter struct {
	count   int
	resetAt time.Time
}

// Memory is a single-process fixed-window limiter. State is lost on restart
// and is not shared between instances; use Redis for that.
type Memory struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	now     func() time.Time
	entries map[string]*counter
}

// NewMemory creates an in-memory limiter. Non-positive arguments fall back to the defaults.
func NewMemory(window time.Duration, max int) *Memory {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	return &Memory{
		window:  window,
		max:     max,
		now:     time.Now,
		entries: make(map[string]*counter),
	}
}

// Allow counts the request against ip. Denied requests are not counted and
// never extend the current window.
func (m *Memory) Allow(_ context.Context, ip string) (bool, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[ip]
	if !ok || !now.Before(e.resetAt) {
		m.entries[ip] = &counter{count: 1, resetAt: now.Add(m.window)}
		return true, nil
	}
	if e.count >= m.max {
		return false, nil
	}
	e.count++
	return true, nil
}

// Sweep drops expired windows and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for ip, e := range m.entries {
		if !now.Before(e.resetAt) {
			delete(m.entries, ip)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every window until ctx is done.
func (m *Memory) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(m.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
