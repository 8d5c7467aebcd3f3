package schedule

import (
	"context"
	"sync"
	"time"
)

// Finder is the lookup surface the reconciliation core depends on.
type Finder interface {
	FindPattern(ctx context.Context, tripCode string) (*TripPattern, error)
}

type cachedPattern struct {
	pattern   *TripPattern
	fetchedAt time.Time
}

// CachedFinder memoizes pattern lookups per trip code. Schedules change
// rarely compared to feed delivery rates, so a short TTL keeps the schedule
// service out of the hot path without risking stale alignments.
type CachedFinder struct {
	inner Finder
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cachedPattern
}

func NewCachedFinder(inner Finder, ttl time.Duration) *CachedFinder {
	return &CachedFinder{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cachedPattern),
	}
}

func (f *CachedFinder) FindPattern(ctx context.Context, tripCode string) (*TripPattern, error) {
	f.mu.RLock()
	entry, ok := f.entries[tripCode]
	f.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < f.ttl {
		return entry.pattern, nil
	}

	pattern, err := f.inner.FindPattern(ctx, tripCode)
	if err != nil {
		// Only successful lookups are cached.
		return nil, err
	}

	f.mu.Lock()
	f.entries[tripCode] = cachedPattern{pattern: pattern, fetchedAt: time.Now()}
	f.mu.Unlock()

	return pattern, nil
}
