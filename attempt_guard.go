package identity

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// maxTrackedKeys bounds the counter store so an attacker rotating keys
// cannot grow memory without limit.
const maxTrackedKeys = 65536

// MemoryAttemptGuard is an in-process AttemptGuard backed by an expiring
// LRU of failure counters. Counters are evicted after the idle window
// whether or not traffic continues, so a block always lapses on its own.
//
// The store's own operations are thread safe, but increment is a
// read-modify-write, so a mutex serializes RecordFailure/RecordSuccess
// against each other to guarantee no lost updates.
type MemoryAttemptGuard struct {
	counters  *lru.LRU[string, int]
	threshold int
	mu        sync.Mutex
}

var _ AttemptGuard = (*MemoryAttemptGuard)(nil)

// NewMemoryAttemptGuard creates a guard that blocks a key once it reaches
// threshold consecutive failures, forgetting idle keys after window.
// Non-positive arguments fall back to the defaults (10 failures, 1 hour).
func NewMemoryAttemptGuard(threshold int, window time.Duration) *MemoryAttemptGuard {
	if threshold <= 0 {
		threshold = DefaultMaxLoginAttempts
	}
	if window <= 0 {
		window = DefaultAttemptWindow
	}

	return &MemoryAttemptGuard{
		counters:  lru.NewLRU[string, int](maxTrackedKeys, nil, window),
		threshold: threshold,
	}
}

// NewMemoryAttemptGuardFromConfig wires a guard from a Config.
func NewMemoryAttemptGuardFromConfig(cfg Config) *MemoryAttemptGuard {
	return NewMemoryAttemptGuard(cfg.GetMaxLoginAttempts(), cfg.GetAttemptWindow())
}

// RecordFailure increments the counter for key, creating it at 1. The
// write also refreshes the entry's idle expiry.
func (g *MemoryAttemptGuard) RecordFailure(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	count, _ := g.counters.Get(key)
	g.counters.Add(key, count+1)
	return nil
}

// RecordSuccess removes the counter for key unconditionally.
func (g *MemoryAttemptGuard) RecordSuccess(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counters.Remove(key)
	return nil
}

// IsBlocked reports whether key has reached the failure threshold. Expired
// entries read as absent, so a block lapses with the idle window.
func (g *MemoryAttemptGuard) IsBlocked(_ context.Context, key string) bool {
	count, ok := g.counters.Get(key)
	return ok && count >= g.threshold
}

// Failures returns the current counter for key, 0 when absent or expired.
func (g *MemoryAttemptGuard) Failures(key string) int {
	count, _ := g.counters.Get(key)
	return count
}
