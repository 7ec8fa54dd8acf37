package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/transito/pkg/domain"
)

// Store implements ports.Adapter using the local filesystem.
// Each actor is one JSON file in BasePath.
//
// Create is exclusive across processes (hard link of a fully written file). Save is a
// compare-and-swap guarded by a process-local mutex, so a directory must have a single
// writing process.
type Store struct {
	BasePath string

	mu  sync.Mutex
	now func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".transito/actors".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".transito", "actors")
	}
	s := &Store{BasePath: basePath, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) path(id string) string {
	return filepath.Join(s.BasePath, url.PathEscape(id)+".json")
}

// Load reads the actor file, or returns nil when it does not exist.
func (s *Store) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	if id == "" {
		return nil, fmt.Errorf("file: actor id cannot be empty")
	}
	return s.read(id)
}

func (s *Store) read(id string) (*domain.Snapshot, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("file: read actor %q: %w", id, err)
	}

	return decode(id, data)
}

// decode is the single place snapshots leave the JSON form, so Create and Save return
// exactly what a later Load reads.
func decode(id string, data []byte) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("file: decode actor %q: %w", id, err)
	}
	if snap.Context == nil {
		snap.Context = map[string]any{}
	}
	return &snap, nil
}

// Create writes the first snapshot of id. It fails with domain.ErrDuplicateIdentity if
// a file for id already exists.
func (s *Store) Create(ctx context.Context, id, state string, data map[string]any) (*domain.Snapshot, error) {
	if id == "" {
		return nil, fmt.Errorf("file: actor id cannot be empty")
	}
	now := domain.Timestamp(s.now())
	snap := &domain.Snapshot{
		ID:        id,
		State:     state,
		Context:   domain.CloneContext(data),
		CreatedAt: now,
		UpdatedAt: now,
	}

	tmpPath, data, err := s.writeTemp(snap)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	if err := os.Link(tmpPath, s.path(id)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("file: create actor %q: %w", id, domain.ErrDuplicateIdentity)
		}
		return nil, fmt.Errorf("file: create actor %q: %w", id, err)
	}
	return decode(id, data)
}

// Save atomically replaces the actor file if its UpdatedAt still equals prevUpdatedAt.
func (s *Store) Save(ctx context.Context, snapshot *domain.Snapshot, prevUpdatedAt time.Time) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(snapshot.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("file: save actor %q: %w", snapshot.ID, domain.ErrActorNotFound)
	}
	if !current.UpdatedAt.Equal(prevUpdatedAt) {
		return nil, fmt.Errorf("file: save actor %q: %w", snapshot.ID, domain.ErrConcurrencyConflict)
	}

	next := snapshot.Clone()
	next.CreatedAt = current.CreatedAt
	tmpPath, data, err := s.writeTemp(next)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	if err := os.Rename(tmpPath, s.path(snapshot.ID)); err != nil {
		return nil, fmt.Errorf("file: replace actor %q: %w", snapshot.ID, err)
	}
	return decode(snapshot.ID, data)
}

// writeTemp writes snap to a synced temporary file in BasePath (same filesystem, so
// rename and link are atomic) and returns its path and content.
func (s *Store) writeTemp(snap *domain.Snapshot) (string, []byte, error) {
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return "", nil, fmt.Errorf("file: ensure actor directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("file: encode actor %q: %w", snap.ID, err)
	}

	tmp, err := os.CreateTemp(s.BasePath, ".tmp-*")
	if err != nil {
		return "", nil, fmt.Errorf("file: create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("file: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("file: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("file: close temp file: %w", err)
	}
	return tmp.Name(), data, nil
}

// Delete removes the actor file.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file: delete actor %q: %w", id, err)
	}
	return nil
}

// List returns all stored actor IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("file: list actors: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".tmp-") || filepath.Ext(name) != ".json" {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
