package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/transito/pkg/domain"
)

// Store implements ports.Adapter in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Snapshot
	mu   sync.RWMutex
	now  func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]*domain.Snapshot),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load retrieves a copy of the snapshot, or nil when absent.
func (s *Store) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[id].Clone(), nil
}

// Create stores a new snapshot unless id is taken.
func (s *Store) Create(ctx context.Context, id, state string, data map[string]any) (*domain.Snapshot, error) {
	now := domain.Timestamp(s.now())
	snap := &domain.Snapshot{
		ID:        id,
		State:     state,
		Context:   domain.CloneContext(data),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; ok {
		return nil, fmt.Errorf("memory: create %q: %w", id, domain.ErrDuplicateIdentity)
	}
	s.data[id] = snap
	return snap.Clone(), nil
}

// Save replaces the snapshot if it was not modified since prevUpdatedAt.
func (s *Store) Save(ctx context.Context, snapshot *domain.Snapshot, prevUpdatedAt time.Time) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[snapshot.ID]
	if !ok {
		return nil, fmt.Errorf("memory: save %q: %w", snapshot.ID, domain.ErrActorNotFound)
	}
	if !current.UpdatedAt.Equal(prevUpdatedAt) {
		return nil, fmt.Errorf("memory: save %q: %w", snapshot.ID, domain.ErrConcurrencyConflict)
	}
	next := snapshot.Clone()
	next.CreatedAt = current.CreatedAt
	s.data[snapshot.ID] = next
	return next.Clone(), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns stored identities in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
