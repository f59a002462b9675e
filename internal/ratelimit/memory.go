package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepThreshold bounds how many windows accumulate before expired ones are dropped.
const sweepThreshold = 10_000

type window struct {
	count   int
	resetAt time.Time
}

// Memory is a mutex-guarded fixed-window limiter local to the process.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{windows: make(map[string]*window), now: time.Now}
}

var _ Limiter = (*Memory)(nil)

func (m *Memory) Allow(_ context.Context, key string, rule Rule) (Result, error) {
	now := m.now()
	k := rule.String() + "|" + key

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.windows) >= sweepThreshold {
		m.sweep(now)
	}

	w, ok := m.windows[k]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(rule.Window)}
		m.windows[k] = w
	}
	w.count++

	return newResult(rule, w.count, w.resetAt, now), nil
}

func (m *Memory) sweep(now time.Time) {
	for k, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, k)
		}
	}
}
