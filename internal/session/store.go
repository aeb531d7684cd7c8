package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already exists")
	ErrConflict = errors.New("session changed concurrently")
)

// Store persists session state. Update applies fn atomically to the stored
// state; when fn returns an error nothing is written.
type Store interface {
	Create(ctx context.Context, s State) error
	Get(ctx context.Context, id string) (State, error)
	Update(ctx context.Context, id string, fn func(*State) error) (State, error)
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Every write extends the
// session's lifetime by ttl; a zero ttl never expires.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(s.ID); ok {
		return ErrExists
	}
	m.put(s)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(id)
	if !ok {
		return State{}, ErrNotFound
	}
	return e.state.clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*State) error) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(id)
	if !ok {
		return State{}, ErrNotFound
	}
	next := e.state.clone()
	if err := fn(&next); err != nil {
		return State{}, err
	}
	next.ID = id
	next.UpdatedAt = m.now()
	m.put(next)
	return next.clone(), nil
}

// Delete removes a live session. Unknown or expired ids return ErrNotFound.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(id); !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// Len counts sessions that have not expired.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id := range m.items {
		if _, ok := m.live(id); ok {
			n++
		}
	}
	return n
}

func (m *MemoryStore) live(id string) (memoryEntry, bool) {
	e, ok := m.items[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.items, id)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *MemoryStore) put(s State) {
	e := memoryEntry{state: s.clone()}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.items[s.ID] = e
}
