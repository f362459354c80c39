package redisstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/secure-health/credstore/redisstore"
	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*redisstore.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return redisstore.New(rdb, ""), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedisStore(t)

	entry, err := s.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, entry)

	require.NoError(t, s.Save(ctx, "authInfo", []byte(`{"accessToken":"A"}`)))
	require.True(t, mr.Exists(redisstore.DefaultKey))

	entry, err = s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "authInfo", entry.Service)
	require.Equal(t, `{"accessToken":"A"}`, string(entry.Payload))

	require.NoError(t, s.Save(ctx, "authInfo", []byte(`{"accessToken":"B"}`)))
	entry, err = s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, `{"accessToken":"B"}`, string(entry.Payload))

	require.NoError(t, s.Clear(ctx))
	require.False(t, mr.Exists(redisstore.DefaultKey))
	entry, err = s.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedisStore(t)
	mr.Close()

	require.ErrorIs(t, s.Save(ctx, "authInfo", []byte("x")), errors.ErrPersistence)
	require.ErrorIs(t, s.Clear(ctx), errors.ErrStoreClear)
	_, err := s.Load(ctx)
	require.ErrorIs(t, err, errors.ErrStoreLoad)
}

func TestDialRejectsBadURL(t *testing.T) {
	_, err := redisstore.Dial(context.Background(), "not-a-url", "")
	require.Error(t, err)
}
