package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/transito/internal/logging"
	"github.com/aretw0/transito/pkg/domain"
)

// farFuture is the index score of actors without a TTL (2100-01-01).
const farFuture = 4102444800

// Store implements ports.Adapter using Redis.
//
// Each actor is one JSON value. Create relies on SET NX and Save on WATCH/MULTI, so the
// store is safe across any number of processes sharing the server.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration of actor keys, refreshed on every write.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for actors.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock overrides time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger used for index maintenance warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromURL creates a store from a redis:// URL.
func NewFromURL(rawURL string, opts ...Option) (*Store, error) {
	o, err := backend.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	return NewFromClient(backend.NewClient(o), opts...), nil
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "transito:actor:",
		now:    time.Now,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) score() float64 {
	if s.ttl == 0 {
		return farFuture
	}
	return float64(s.now().Add(s.ttl).Unix())
}

// Load retrieves the actor, or nil when the key does not exist.
func (s *Store) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	return s.get(ctx, s.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *backend.StringCmd
}

func (s *Store) get(ctx context.Context, c getter, id string) (*domain.Snapshot, error) {
	val, err := c.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: get actor %q: %w", id, err)
	}

	return decode(id, val)
}

// decode turns stored JSON into a snapshot. Writes return their own bytes through it so
// they match a later Load.
func decode(id string, raw []byte) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("redis: decode actor %q: %w", id, err)
	}
	if snap.Context == nil {
		snap.Context = map[string]any{}
	}
	return &snap, nil
}

// Create stores the first snapshot of id with SET NX, queued in one MULTI with the index
// entry. Once the SET applied the actor exists, so an index failure is logged, not returned.
func (s *Store) Create(ctx context.Context, id, state string, data map[string]any) (*domain.Snapshot, error) {
	now := domain.Timestamp(s.now())
	snap := &domain.Snapshot{
		ID:        id,
		State:     state,
		Context:   domain.CloneContext(data),
		CreatedAt: now,
		UpdatedAt: now,
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("redis: encode actor %q: %w", id, err)
	}

	var set *backend.StatusCmd
	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		set = pipe.SetArgs(ctx, s.key(id), raw, backend.SetArgs{Mode: "NX", TTL: s.ttl})
		pipe.ZAddArgs(ctx, s.indexKey(), backend.ZAddArgs{
			GT:      true,
			Members: []backend.Z{{Score: s.score(), Member: id}},
		})
		return nil
	})
	switch {
	case set == nil:
		return nil, fmt.Errorf("redis: create actor %q: %w", id, err)
	case errors.Is(set.Err(), backend.Nil):
		return nil, fmt.Errorf("redis: create actor %q: %w", id, domain.ErrDuplicateIdentity)
	case set.Err() != nil:
		return nil, fmt.Errorf("redis: create actor %q: %w", id, set.Err())
	case err != nil:
		// The actor exists; only the List index missed it.
		s.logger.WarnContext(ctx, "actor index update failed", "actor_id", id, "error", err)
	}
	return decode(id, raw)
}

// Save replaces the actor inside a WATCH transaction if UpdatedAt still equals prevUpdatedAt.
func (s *Store) Save(ctx context.Context, snapshot *domain.Snapshot, prevUpdatedAt time.Time) (*domain.Snapshot, error) {
	key := s.key(snapshot.ID)
	var raw []byte

	err := s.client.Watch(ctx, func(tx *backend.Tx) error {
		current, err := s.get(ctx, tx, snapshot.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrActorNotFound
		}
		if !current.UpdatedAt.Equal(prevUpdatedAt) {
			return domain.ErrConcurrencyConflict
		}

		next := snapshot.Clone()
		next.CreatedAt = current.CreatedAt
		raw, err = json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.score(), Member: snapshot.ID})
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return decode(snapshot.ID, raw)
	case errors.Is(err, backend.TxFailedErr):
		return nil, fmt.Errorf("redis: save actor %q: %w", snapshot.ID, domain.ErrConcurrencyConflict)
	default:
		return nil, fmt.Errorf("redis: save actor %q: %w", snapshot.ID, err)
	}
}

// Delete removes the actor and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete actor %q: %w", id, err)
	}
	return nil
}

// List returns stored identities in lexical order, pruning index entries whose key expired.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(s.now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("(%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("redis: prune expired actors: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list actors: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
