package game

import (
	"context"
	"sync"
	"time"
)

// SessionPersistence stores round snapshots between requests and restarts.
// Only live rounds are kept; implementations expire them after a TTL.
//
// Resolve is the only way a round is closed: it stores a resolved snapshot
// atomically, provided the stored round is still open. It returns ErrResolved
// when another play got there first and ErrNotFound when the round is gone.
type SessionPersistence interface {
	Save(ctx context.Context, snap SessionSnapshot) error
	Load(ctx context.Context, id string) (SessionSnapshot, bool, error)
	Resolve(ctx context.Context, snap SessionSnapshot) error
	Delete(ctx context.Context, id string) error
}

type memEntry struct {
	snap    SessionSnapshot
	expires time.Time
}

type MemorySessionStore struct {
	mu  sync.Mutex
	m   map[string]memEntry
	ttl time.Duration
	now func() time.Time
}

// NewMemorySessionStore keeps snapshots in process memory. ttl <= 0 disables
// expiry.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		m:   make(map[string]memEntry),
		ttl: ttl,
		now: time.Now,
	}
}

func (s *MemorySessionStore) Save(_ context.Context, snap SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memEntry{snap: snap}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.m[snap.ID] = e
	return nil
}

func (s *MemorySessionStore) Load(_ context.Context, id string) (SessionSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[id]
	if !ok {
		return SessionSnapshot{}, false, nil
	}
	if !e.expires.IsZero() && s.now().After(e.expires) {
		delete(s.m, id)
		return SessionSnapshot{}, false, nil
	}
	return e.snap, true, nil
}

func (s *MemorySessionStore) Resolve(_ context.Context, snap SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[snap.ID]
	if !ok || (!e.expires.IsZero() && s.now().After(e.expires)) {
		delete(s.m, snap.ID)
		return ErrNotFound
	}
	if e.snap.Phase == PhaseResolved {
		return ErrResolved
	}

	e.snap = snap
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.m[snap.ID] = e
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}
