package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/halvax/qrcheckin/store"
)

func newRedisStore(t *testing.T) (*store.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return store.NewRedis(client, "test"), mr
}

func TestRedisSetGet(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "session:abc", []byte(`{"state":"WAITING"}`), time.Minute))

	value, err := s.Get(ctx, "session:abc")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"state":"WAITING"}`), value)
}

func TestRedisGetMissingKey(t *testing.T) {
	s, _ := newRedisStore(t)

	_, err := s.Get(context.Background(), "session:missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisTTLExpiry(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "credential", []byte("tok"), 30*time.Second))

	mr.FastForward(31 * time.Second)

	_, err := s.Get(ctx, "credential")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisSetOverwrites(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("first"), time.Minute))
	require.NoError(t, s.Set(ctx, "k", []byte("second"), time.Minute))

	value, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("second"), value)
}

func TestRedisDelete(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, s.Delete(ctx, "k"))

	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Deleting an absent key is not an error.
	require.NoError(t, s.Delete(ctx, "k"))
}

func TestInMemoryTTLExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := store.NewInMemory(store.WithNowTime(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 5*time.Minute))

	value, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), value)

	now = now.Add(5 * time.Minute)

	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInMemoryCopiesValues(t *testing.T) {
	s := store.NewInMemory()
	ctx := context.Background()

	original := []byte("value")
	require.NoError(t, s.Set(ctx, "k", original, time.Minute))
	original[0] = 'X'

	value, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)
}
