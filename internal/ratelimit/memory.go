package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
	window      time.Duration
	lastSeen    time.Time
}

// rollover starts a new window once the current one has fully elapsed.
// Callers hold b.mu.
func (b *bucket) rollover(now time.Time) {
	if !now.Before(b.windowStart.Add(b.window)) {
		b.count = 0
		b.windowStart = now
	}
}

// MemoryLimiter is an in-process Backend
type MemoryLimiter struct {
	buckets sync.Map // ActorKey -> *bucket
	now     func() time.Time
}

// NewMemoryLimiter creates an empty limiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{now: time.Now}
}

// lookup returns the bucket for key, creating it when create is set
func (m *MemoryLimiter) lookup(key ActorKey, window time.Duration, create bool) *bucket {
	if v, ok := m.buckets.Load(key); ok {
		return v.(*bucket)
	}
	if !create {
		return nil
	}
	now := m.now()
	v, _ := m.buckets.LoadOrStore(key, &bucket{
		windowStart: now,
		window:      window,
		lastSeen:    now,
	})
	return v.(*bucket)
}

// Check implements Backend
func (m *MemoryLimiter) Check(_ context.Context, key ActorKey, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{}, nil
	}
	b := m.lookup(key, window, false)
	if b == nil {
		return Decision{}, nil
	}

	now := m.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.window = window
	b.rollover(now)
	if b.count < limit {
		return Decision{}, nil
	}
	return Decision{
		Limited:    true,
		RetryAfter: b.windowStart.Add(b.window).Sub(now),
	}, nil
}

// Record implements Backend
func (m *MemoryLimiter) Record(_ context.Context, key ActorKey, window time.Duration) error {
	b := m.lookup(key, window, true)

	now := m.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.window = window
	b.rollover(now)
	b.count++
	b.lastSeen = now
	return nil
}

// Sweep implements Backend.
// A bucket recorded into between the idle test and the delete loses that
// count; the next Record recreates it.
func (m *MemoryLimiter) Sweep(_ context.Context) (int, error) {
	now := m.now()
	removed := 0
	m.buckets.Range(func(k, v any) bool {
		b := v.(*bucket)
		b.mu.Lock()
		idle := now.Sub(b.lastSeen) >= 2*b.window
		b.mu.Unlock()
		if idle && m.buckets.CompareAndDelete(k, b) {
			removed++
		}
		return true
	})
	return removed, nil
}

// Len returns the number of live buckets
func (m *MemoryLimiter) Len() int {
	n := 0
	m.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
