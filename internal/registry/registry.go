// Package registry holds the latest snapshot per token id.
//
// Upserts replace the whole entry; there is no field-level merge. Readers always
// receive deep copies, so iteration over a snapshot never races with ingestion.
package registry

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"token-risk-monitor/internal/domain"
)

// Entry is a point-in-time copy of one registry slot.
type Entry struct {
	ID       string
	Snapshot *domain.TokenSnapshot
	SeenAt   time.Time // time of the last upsert
}

// Options contains configuration for creating a Registry.
type Options struct {
	// TTL expires entries not upserted within this window. Zero disables expiry.
	TTL time.Duration
	// Clock returns the current time. Default: time.Now
	Clock func() time.Time
}

// idLockStripes is the number of mutexes shared by LockID callers.
const idLockStripes = 64

// Registry is a concurrent id → snapshot map guarded by a reader-writer lock.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*slot
	ttl     time.Duration
	now     func() time.Time

	idLocks [idLockStripes]sync.Mutex
}

type slot struct {
	snapshot *domain.TokenSnapshot
	seenAt   time.Time
}

// New creates an empty registry.
func New(opts Options) *Registry {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		entries: make(map[string]*slot),
		ttl:     opts.TTL,
		now:     clock,
	}
}

// Upsert stores a copy of the snapshot under its id, replacing any previous entry.
// Snapshots without an id are ignored and reported as false.
func (r *Registry) Upsert(snap *domain.TokenSnapshot) bool {
	if snap == nil || snap.ID == "" {
		return false
	}

	s := &slot{snapshot: snap.Clone(), seenAt: r.now()}

	r.mu.Lock()
	r.entries[snap.ID] = s
	r.mu.Unlock()
	return true
}

// Get returns a copy of the snapshot for id.
func (r *Registry) Get(id string) (*domain.TokenSnapshot, bool) {
	r.mu.RLock()
	s, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	// Slots are never mutated after insert, so cloning outside the lock is safe.
	return s.snapshot.Clone(), true
}

// GetEntry returns a copy of the entry for id, including its last-seen time.
func (r *Registry) GetEntry(id string) (Entry, bool) {
	r.mu.RLock()
	s, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	return Entry{ID: id, Snapshot: s.snapshot.Clone(), SeenAt: s.seenAt}, true
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// GetAllSnapshot returns a consistent copy of every entry, ordered by id.
func (r *Registry) GetAllSnapshot() []Entry {
	r.mu.RLock()
	slots := make(map[string]*slot, len(r.entries))
	for id, s := range r.entries {
		slots[id] = s
	}
	r.mu.RUnlock()

	result := make([]Entry, 0, len(slots))
	for id, s := range slots {
		result = append(result, Entry{
			ID:       id,
			Snapshot: s.snapshot.Clone(),
			SeenAt:   s.seenAt,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Restore bulk-loads snapshots, typically from persistence at startup.
// Existing entries with the same id are replaced. Returns the number loaded.
func (r *Registry) Restore(snapshots []*domain.TokenSnapshot) int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	loaded := 0
	for _, snap := range snapshots {
		if snap == nil || snap.ID == "" {
			continue
		}
		r.entries[snap.ID] = &slot{snapshot: snap.Clone(), seenAt: now}
		loaded++
	}
	return loaded
}

// Sweep removes entries last seen before now - TTL and returns their ids.
// It is a no-op when TTL is zero.
func (r *Registry) Sweep(now time.Time) []string {
	if r.ttl <= 0 {
		return nil
	}
	cutoff := now.Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []string
	for id, s := range r.entries {
		if s.seenAt.Before(cutoff) {
			delete(r.entries, id)
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	return expired
}

// LockID serializes callers that pair a registry change for id with a
// persistence write, so the store is left matching the registry. Distinct ids
// may share a stripe. The registry's own methods never take this lock.
func (r *Registry) LockID(id string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	m := &r.idLocks[h.Sum32()%idLockStripes]
	m.Lock()
	return m.Unlock
}

// TTL returns the configured expiry window.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}
