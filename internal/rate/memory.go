package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter replica el fixed window en proceso, para desarrollo y
// tests donde no hay redis. No sirve para más de una instancia.
type MemoryLimiter struct {
	mu     sync.Mutex
	hits   map[string]int64
	max    int64
	window time.Duration
	// lastSweep evita que el mapa crezca sin límite entre ventanas.
	lastSweep time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		hits:      make(map[string]int64),
		max:       int64(max),
		window:    window,
		lastSweep: time.Now().UTC(),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.window)
	k := sanitizeKey(key) + ":" + winStart.Format(time.RFC3339)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.window {
		l.hits = make(map[string]int64)
		l.lastSweep = now
	}

	l.hits[k]++
	hits := l.hits[k]
	remaining := l.max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     hits <= l.max,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   l.window - now.Sub(winStart),
	}
	if !res.Allowed {
		res.RetryAfter = l.window - now.Sub(winStart)
	}
	return res, nil
}
