package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/transito/pkg/adapters/redis"
	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/ports"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewFromClient(client, opts...), mr
}

func TestRedisStore_Contract(t *testing.T) {
	ports.RunAdapterContract(t, func(t *testing.T) ports.Adapter {
		store, _ := newStore(t)
		return store
	})
}

func TestRedisStore_Prefix(t *testing.T) {
	store, mr := newStore(t, redis.WithPrefix("billing:"))

	_, err := store.Create(context.Background(), "sub_1", "inactive", map[string]any{"plan": "pro"})
	require.NoError(t, err)

	assert.True(t, mr.Exists("billing:sub_1"))
	assert.True(t, mr.Exists("billing:index"))
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t, redis.WithTTL(time.Minute))

	_, err := store.Create(ctx, "sub_1", "inactive", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("transito:actor:sub_1"))

	mr.FastForward(2 * time.Minute)

	snap, err := store.Load(ctx, "sub_1")
	require.NoError(t, err)
	assert.Nil(t, snap, "expired actors are absent")

	_, err = store.Create(ctx, "sub_1", "inactive", nil)
	assert.NoError(t, err, "an expired identity can be created again")
}

func TestRedisStore_NewFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := redis.NewFromURL("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Create(context.Background(), "a", "inactive", nil)
	require.NoError(t, err)

	_, err = redis.NewFromURL("://bad")
	assert.Error(t, err)
}

func TestRedisStore_CreateSurvivesIndexFailure(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t)
	require.NoError(t, mr.Set("transito:actor:index", "not a sorted set"))

	created, err := store.Create(ctx, "sub_1", "inactive", map[string]any{"count": 1})
	require.NoError(t, err, "the actor was written, so create must report success")

	loaded, err := store.Load(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, created, loaded)

	_, err = store.Create(ctx, "sub_1", "inactive", nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)
}

func TestRedisStore_DuplicateCreateKeepsIndexScore(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t)

	_, err := store.Create(ctx, "sub_1", "inactive", nil)
	require.NoError(t, err)
	_, err = store.Create(ctx, "sub_1", "inactive", nil)
	require.ErrorIs(t, err, domain.ErrDuplicateIdentity)

	members, err := mr.ZMembers("transito:actor:index")
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_1"}, members)
}

func TestRedisStore_WritesReturnDecodedContext(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	created, err := store.Create(ctx, "sub_1", "inactive", map[string]any{"count": 0})
	require.NoError(t, err)
	assert.Equal(t, float64(0), created.Context["count"])

	next := created.Clone()
	next.Context["count"] = 1
	next.UpdatedAt = created.UpdatedAt.Add(time.Millisecond)
	saved, err := store.Save(ctx, next, created.UpdatedAt)
	require.NoError(t, err)

	loaded, err := store.Load(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
	assert.Equal(t, float64(1), loaded.Context["count"])
}
