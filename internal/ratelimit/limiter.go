// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter grants each user a fixed number of requests per UTC calendar day.
// Allow checks and consumes one unit in a single step.
type Limiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

const dayLayout = "2006-01-02"

func dayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

type counter struct {
	day   string
	count int
}

// Memory is a process-local Limiter. State is lost on restart.
type Memory struct {
	mu       sync.Mutex
	max      int
	now      func() time.Time
	counters map[string]*counter
}

func NewMemory(maxPerDay int) *Memory {
	return &Memory{
		max:      maxPerDay,
		now:      time.Now,
		counters: make(map[string]*counter),
	}
}

func (m *Memory) Allow(ctx context.Context, userID string) (bool, error) {
	day := dayKey(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[userID]
	if !ok || c.day != day {
		c = &counter{day: day}
		m.counters[userID] = c
	}
	c.count++

	return c.count <= m.max, nil
}

// Sweep drops counters from previous days.
func (m *Memory) Sweep() int {
	day := dayKey(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for userID, c := range m.counters {
		if c.day != day {
			delete(m.counters, userID)
			removed++
		}
	}
	return removed
}
