// Package pool implements the provider-pool load balancer: an in-memory
// map of provider -> ordered pool entries with round-robin selection over
// the currently-healthy subset. Grounded on
// _examples/original_source/rust/src/pool_manager.rs's ProviderPoolManager.
package pool

import (
	"sync"
	"time"

	"github.com/router-for-me/aigateway/internal/common"
)

// Entry is a single credential instance within a provider's pool, per
// spec.md §4.1's "Pool entry" definition.
type Entry struct {
	UUID           string
	CredentialsRaw []byte
	CheckModelName string
	IsHealthy      bool
	LastUsed       *time.Time
	UsageCount     uint64
	ErrorCount     uint32
	LastErrorTime  *time.Time
}

// Manager holds one pool per provider tag and a separate round-robin
// cursor per provider, following spec.md §4.8's two-lock mandate: one
// reader/writer lock over the pool map, a separate lock over cursors.
type Manager struct {
	mu      sync.RWMutex
	pools   map[common.Provider][]*Entry
	cursMu  sync.Mutex
	cursors map[common.Provider]int

	// MaxErrorCount is the consecutive-error threshold past which an
	// entry is auto-marked unhealthy, completing the auto-unhealthy
	// logic the teacher's Rust left as perform_health_checks's TODO.
	MaxErrorCount uint32
}

// New builds a Manager seeded with the given pools, keyed by provider tag.
func New(pools map[common.Provider][]*Entry, maxErrorCount uint32) *Manager {
	m := &Manager{
		pools:         make(map[common.Provider][]*Entry, len(pools)),
		cursors:       make(map[common.Provider]int, len(pools)),
		MaxErrorCount: maxErrorCount,
	}
	for p, entries := range pools {
		m.pools[p] = entries
	}
	return m
}

// Select returns the next healthy entry for provider, advancing that
// provider's round-robin cursor modulo the currently-healthy subset.
// Returns common.NoHealthyProvider when the pool is empty or all entries
// are unhealthy.
func (m *Manager) Select(p common.Provider) (*Entry, error) {
	m.mu.RLock()
	all := m.pools[p]
	healthy := make([]*Entry, 0, len(all))
	for _, e := range all {
		if e.IsHealthy {
			healthy = append(healthy, e)
		}
	}
	m.mu.RUnlock()

	if len(healthy) == 0 {
		return nil, common.NoHealthyProvider(p)
	}

	m.cursMu.Lock()
	idx := m.cursors[p] % len(healthy)
	m.cursors[p] = (m.cursors[p] + 1) % len(healthy)
	m.cursMu.Unlock()

	return healthy[idx], nil
}

// MarkUnhealthy flips the named entry's health flag off under the pool
// write lock.
func (m *Manager) MarkUnhealthy(p common.Provider, uuid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.pools[p] {
		if e.UUID == uuid {
			e.IsHealthy = false
			return
		}
	}
}

// MarkHealthy flips the named entry's health flag on and resets its error
// counter under the pool write lock.
func (m *Manager) MarkHealthy(p common.Provider, uuid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.pools[p] {
		if e.UUID == uuid {
			e.IsHealthy = true
			e.ErrorCount = 0
			return
		}
	}
}

// RecordSuccess resets the entry's error counter and bumps its usage stats.
func (m *Manager) RecordSuccess(p common.Provider, uuid string) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.pools[p] {
		if e.UUID == uuid {
			e.ErrorCount = 0
			e.UsageCount++
			e.LastUsed = &now
			return
		}
	}
}

// RecordError increments the entry's error counter and, once it crosses
// MaxErrorCount, marks it unhealthy. MaxErrorCount == 0 disables the
// threshold (errors are recorded but never auto-heal the flag off).
func (m *Manager) RecordError(p common.Provider, uuid string) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.pools[p] {
		if e.UUID == uuid {
			e.ErrorCount++
			e.LastErrorTime = &now
			if m.MaxErrorCount > 0 && e.ErrorCount >= m.MaxErrorCount {
				e.IsHealthy = false
			}
			return
		}
	}
}

// Entries returns a snapshot of a provider's pool, for admin/TUI display.
func (m *Manager) Entries(p common.Provider) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.pools[p]))
	for _, e := range m.pools[p] {
		out = append(out, *e)
	}
	return out
}

// Providers returns the set of provider tags currently registered.
func (m *Manager) Providers() []common.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]common.Provider, 0, len(m.pools))
	for p := range m.pools {
		out = append(out, p)
	}
	return out
}
