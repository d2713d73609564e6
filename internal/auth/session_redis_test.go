package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisTicketStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTicketStore(client), mr
}

func TestRedisTicketStore_PutAndTake(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	expiry := time.Now().Add(5 * time.Minute).UTC()

	require.NoError(t, store.Put(ctx, "ticket-1", expiry))

	got, ok, err := store.Take(ctx, "ticket-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(expiry))
}

func TestRedisTicketStore_TakeRemoves(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "ticket-1", time.Now().Add(time.Minute)))

	_, ok, err := store.Take(ctx, "ticket-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = store.Take(ctx, "ticket-1")
	require.NoError(t, err)
	assert.False(t, ok, "second take must miss")
}

func TestRedisTicketStore_TakeUnknown(t *testing.T) {
	store, _ := newRedisStore(t)

	_, ok, err := store.Take(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisTicketStore_ExpiredTicketEvicted(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "ticket-1", time.Now().Add(time.Minute)))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Take(ctx, "ticket-1")
	require.NoError(t, err)
	assert.False(t, ok, "redis should evict the expired ticket")
}

func TestRedisTicketStore_RejectsAlreadyExpired(t *testing.T) {
	store, _ := newRedisStore(t)

	err := store.Put(context.Background(), "ticket-1", time.Now().Add(-time.Minute))
	assert.Error(t, err)
}
