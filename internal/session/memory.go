package session

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	state   State
	expires time.Time
}

// MemoryStore keeps sessions in process memory. Expired entries are dropped
// lazily on access.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]entry
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:   ttl,
		items: make(map[string]entry),
		now:   time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok {
		return State{}, ErrNotFound
	}
	if s.now().After(e.expires) {
		delete(s.items, id)
		return State{}, ErrNotFound
	}
	return e.state, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	state.UpdatedAt = now
	s.items[id] = entry{state: state, expires: now.Add(s.ttl)}
	s.sweep(now)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// sweep must be called with mu held.
func (s *MemoryStore) sweep(now time.Time) {
	for id, e := range s.items {
		if now.After(e.expires) {
			delete(s.items, id)
		}
	}
}
