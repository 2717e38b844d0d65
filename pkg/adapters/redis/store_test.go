package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/merits/pkg/adapters/redis"
	"github.com/aretw0/merits/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSequenceStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "nightly", map[string]int{"STOP.csv": 7}))

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, "nightly")

	mr.FastForward(2 * time.Second)
	_, err = store.Load(ctx, "nightly")
	assert.ErrorIs(t, err, ports.ErrSequenceNotFound)

	// The index is pruned against the wall clock.
	time.Sleep(1200 * time.Millisecond)
	keys, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "daily", map[string]int{"MCT.csv": 2}))
	assert.True(t, mr.Exists("custom:app:seq:daily"))
	assert.True(t, mr.Exists("custom:app:seq-index"))

	raw, err := mr.Get("custom:app:seq:daily")
	require.NoError(t, err)
	assert.JSONEq(t, `{"MCT.csv": 2}`, raw)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	require.NoError(t, mr.Set(redis.DefaultPrefix+"seq:broken", "not json"))

	_, err := store.Load(context.Background(), "broken")
	assert.ErrorContains(t, err, "failed to unmarshal")
}
