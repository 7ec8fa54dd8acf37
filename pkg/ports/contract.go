package ports

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/transito/pkg/domain"
)

// ContractContext returns the context RunAdapterContract stores. Adapters with a fixed
// layout (one column per field) must be configured with these fields:
// name (string), score (float), count (int), active (bool), note (nullable string) and
// tags (slice of string).
func ContractContext() map[string]any {
	return map[string]any{
		"name":   "Ada",
		"score":  1.5,
		"count":  3,
		"active": true,
		"note":   nil,
		"tags":   []any{"go", "fsm"},
	}
}

// RunAdapterContract runs a suite of tests verifying that an Adapter implementation
// adheres to the interface contract. newAdapter is called once per subtest and must
// return an empty adapter.
func RunAdapterContract(t *testing.T, newAdapter func(t *testing.T) Adapter) {
	ctx := context.Background()

	t.Run("Create and Load", func(t *testing.T) {
		a := newAdapter(t)
		before := time.Now().Add(-time.Second)

		created, err := a.Create(ctx, "actor-1", "inactive", ContractContext())
		require.NoError(t, err)
		assert.Equal(t, "actor-1", created.ID)
		assert.Equal(t, "inactive", created.State)
		assertContractValues(t, ContractContext(), created.Context)
		assert.True(t, created.CreatedAt.Equal(created.UpdatedAt), "createdAt and updatedAt must match on create")
		assert.True(t, created.CreatedAt.After(before))
		assert.Equal(t, time.UTC, created.CreatedAt.Location())
		assert.Equal(t, domain.Timestamp(created.CreatedAt), created.CreatedAt, "timestamps are truncated to milliseconds")

		loaded, err := a.Load(ctx, "actor-1")
		require.NoError(t, err)
		requireSnapshot(t, created, loaded)
	})

	t.Run("Load Absent", func(t *testing.T) {
		a := newAdapter(t)
		snap, err := a.Load(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("Loaded Snapshot Is A Copy", func(t *testing.T) {
		a := newAdapter(t)
		input := ContractContext()
		created, err := a.Create(ctx, "actor-1", "inactive", input)
		require.NoError(t, err)
		input["tags"].([]any)[0] = "mutated"
		created.Context["tags"].([]any)[1] = "mutated"

		first, err := a.Load(ctx, "actor-1")
		require.NoError(t, err)
		first.Context["name"] = "mutated"
		first.Context["tags"].([]any)[0] = "mutated"
		first.State = "mutated"

		second, err := a.Load(ctx, "actor-1")
		require.NoError(t, err)
		assert.Equal(t, "Ada", second.Context["name"])
		assert.Equal(t, []any{"go", "fsm"}, second.Context["tags"])
		assert.Equal(t, "inactive", second.State)
	})

	t.Run("Writes Return What Load Decodes", func(t *testing.T) {
		a := newAdapter(t)
		created, err := a.Create(ctx, "actor-1", "inactive", ContractContext())
		require.NoError(t, err)

		loaded, err := a.Load(ctx, "actor-1")
		require.NoError(t, err)
		requireSnapshot(t, created, loaded)

		next := advance(created, "active", "Grace")
		next.Context["count"] = 4
		saved, err := a.Save(ctx, next, created.UpdatedAt)
		require.NoError(t, err)
		assert.EqualValues(t, 4, saved.Context["count"])

		loaded, err = a.Load(ctx, "actor-1")
		require.NoError(t, err)
		requireSnapshot(t, saved, loaded)
	})

	t.Run("Duplicate Create", func(t *testing.T) {
		a := newAdapter(t)
		original, err := a.Create(ctx, "actor-1", "inactive", ContractContext())
		require.NoError(t, err)

		other := ContractContext()
		other["name"] = "Grace"
		_, err = a.Create(ctx, "actor-1", "active", other)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)

		loaded, err := a.Load(ctx, "actor-1")
		require.NoError(t, err)
		requireSnapshot(t, original, loaded)
	})

	t.Run("Save Compare And Swap", func(t *testing.T) {
		a := newAdapter(t)
		created, err := a.Create(ctx, "actor-1", "inactive", ContractContext())
		require.NoError(t, err)

		next := advance(created, "active", "Grace")
		saved, err := a.Save(ctx, next, created.UpdatedAt)
		require.NoError(t, err)
		assert.Equal(t, "active", saved.State)
		assert.True(t, saved.UpdatedAt.Equal(next.UpdatedAt))

		loaded, err := a.Load(ctx, "actor-1")
		require.NoError(t, err)
		requireSnapshot(t, next, loaded)
		assert.True(t, loaded.CreatedAt.Equal(created.CreatedAt), "createdAt is immutable")
	})

	t.Run("Save Stale", func(t *testing.T) {
		a := newAdapter(t)
		created, err := a.Create(ctx, "actor-1", "inactive", ContractContext())
		require.NoError(t, err)

		first := advance(created, "active", "Grace")
		_, err = a.Save(ctx, first, created.UpdatedAt)
		require.NoError(t, err)

		stale := advance(created, "failed", "Linus")
		_, err = a.Save(ctx, stale, created.UpdatedAt)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

		loaded, err := a.Load(ctx, "actor-1")
		require.NoError(t, err)
		requireSnapshot(t, first, loaded)
	})

	t.Run("Save Absent", func(t *testing.T) {
		a := newAdapter(t)
		now := domain.Timestamp(time.Now())
		_, err := a.Save(ctx, &domain.Snapshot{
			ID: "ghost", State: "active", Context: ContractContext(), CreatedAt: now, UpdatedAt: now.Add(time.Millisecond),
		}, now)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrActorNotFound)
	})

	t.Run("Concurrent Create", func(t *testing.T) {
		a := newAdapter(t)
		const n = 8
		var won, dup atomic.Int32

		var g errgroup.Group
		for i := 0; i < n; i++ {
			g.Go(func() error {
				c := ContractContext()
				c["name"] = fmt.Sprintf("writer-%d", i)
				_, err := a.Create(ctx, "actor-1", "inactive", c)
				switch {
				case err == nil:
					won.Add(1)
				case errors.Is(err, domain.ErrDuplicateIdentity):
					dup.Add(1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.EqualValues(t, 1, won.Load())
		assert.EqualValues(t, n-1, dup.Load())
	})

	t.Run("Concurrent Save", func(t *testing.T) {
		a := newAdapter(t)
		created, err := a.Create(ctx, "actor-1", "inactive", ContractContext())
		require.NoError(t, err)

		const n = 8
		var won, conflicted atomic.Int32
		var g errgroup.Group
		for i := 0; i < n; i++ {
			g.Go(func() error {
				_, err := a.Save(ctx, advance(created, "active", fmt.Sprintf("writer-%d", i)), created.UpdatedAt)
				switch {
				case err == nil:
					won.Add(1)
				case errors.Is(err, domain.ErrConcurrencyConflict):
					conflicted.Add(1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.EqualValues(t, 1, won.Load(), "exactly one writer must win")
		assert.EqualValues(t, n-1, conflicted.Load())
	})

	t.Run("List And Delete", func(t *testing.T) {
		a := newAdapter(t)
		lister, canList := a.(Lister)
		deleter, canDelete := a.(Deleter)
		if !canList || !canDelete {
			t.Skip("adapter does not implement Lister and Deleter")
		}

		for _, id := range []string{"b", "a", "c"} {
			_, err := a.Create(ctx, id, "inactive", ContractContext())
			require.NoError(t, err)
		}
		ids, err := lister.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, ids)

		require.NoError(t, deleter.Delete(ctx, "b"))
		require.NoError(t, deleter.Delete(ctx, "b"), "deleting twice is not an error")

		snap, err := a.Load(ctx, "b")
		require.NoError(t, err)
		assert.Nil(t, snap)

		ids, err = lister.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, ids)

		_, err = a.Create(ctx, "b", "inactive", ContractContext())
		assert.NoError(t, err, "a deleted identity can be created again")
	})
}

func advance(s *domain.Snapshot, state, name string) *domain.Snapshot {
	next := s.Clone()
	next.State = state
	next.Context["name"] = name
	next.Context["score"] = 2.25
	next.UpdatedAt = s.UpdatedAt.Add(5 * time.Millisecond)
	return next
}

func requireSnapshot(t *testing.T, want, got *domain.Snapshot) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.State, got.State)
	assert.Equal(t, want.Context, got.Context)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt: want %s, got %s", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updatedAt: want %s, got %s", want.UpdatedAt, got.UpdatedAt)
}

// assertContractValues compares by value so numbers may come back as any numeric type the
// backend decodes to.
func assertContractValues(t *testing.T, want, got map[string]any) {
	t.Helper()
	assert.Len(t, got, len(want))
	for k, v := range want {
		assert.EqualValues(t, v, got[k], "field %q", k)
	}
}
