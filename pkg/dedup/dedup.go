// Package dedup suppresses duplicate message deliveries. The broker
// redelivers QoS 1 publishes, so the ingestion path hashes each payload and
// drops anything it has already admitted within the TTL window.
package dedup

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	defaultTTL = 10 * time.Minute
	defaultCap = 10000
)

// Filter remembers recently admitted ids for a TTL window, bounded in size.
type Filter struct {
	mu    sync.Mutex
	clock clockwork.Clock
	ttl   time.Duration
	cap   int
	seen  map[string]time.Time // id -> expiry
}

// New builds a Filter. Non-positive ttl or cap fall back to defaults.
func New(ttl time.Duration, capacity int) *Filter {
	return NewWithClock(ttl, capacity, clockwork.NewRealClock())
}

// NewWithClock is New with an injectable time source for tests.
func NewWithClock(ttl time.Duration, capacity int, clock clockwork.Clock) *Filter {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if capacity <= 0 {
		capacity = defaultCap
	}
	return &Filter{
		clock: clock,
		ttl:   ttl,
		cap:   capacity,
		seen:  make(map[string]time.Time, capacity),
	}
}

// Admit reports whether id is new within the TTL window, recording it if so.
// A second call with the same id inside the window returns false. The empty
// id is always admitted.
func (f *Filter) Admit(id string) bool {
	if id == "" {
		return true
	}
	now := f.clock.Now()

	f.mu.Lock()
	defer f.mu.Unlock()

	if exp, ok := f.seen[id]; ok && now.Before(exp) {
		return false
	}
	f.seen[id] = now.Add(f.ttl)
	if len(f.seen) > f.cap {
		f.evict(now)
	}
	return true
}

// evict drops expired entries until the map fits the cap again. Called with
// the lock held.
func (f *Filter) evict(now time.Time) {
	for id, exp := range f.seen {
		if now.After(exp) {
			delete(f.seen, id)
		}
		if len(f.seen) <= f.cap {
			return
		}
	}
}
