package guard

import (
	"context"
	"sync"
	"time"
)

const sweepEvery = 1024

// MemoryStore keeps counters in process memory.
// Counters are not shared between server instances; use the redis store when running more than one.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
	flags   map[string]time.Time
	hits    int
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
		flags:   make(map[string]time.Time),
	}
}

func (s *MemoryStore) Hit(_ context.Context, key string, policy Policy, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits++
	if s.hits%sweepEvery == 0 {
		s.sweep(now)
	}

	k := StoreKey(policy, key)
	entry, ok := s.entries[k]
	if !ok {
		entry = new(Entry)
		s.entries[k] = entry
	}
	return entry.Hit(policy, now), nil
}

func (s *MemoryStore) Flag(_ context.Context, id string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.flags[id]; !ok || until.After(prev) {
		s.flags[id] = until
	}
	return nil
}

func (s *MemoryStore) Flagged(_ context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.flags[id]
	if !ok {
		return false, nil
	}
	if !now.Before(until) {
		delete(s.flags, id)
		return false, nil
	}
	return true, nil
}

// Len returns the number of live counters (for tests and the admin stats command).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep drops stale entries. Caller holds the lock.
func (s *MemoryStore) sweep(now time.Time) {
	for k, e := range s.entries {
		if e.Stale(now) {
			delete(s.entries, k)
		}
	}
	for id, until := range s.flags {
		if !now.Before(until) {
			delete(s.flags, id)
		}
	}
}
