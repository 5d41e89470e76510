package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"warbler/internal/observability"

	"github.com/alicebob/miniredis/v2"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedUser) func() error {
		return func() error {
			calls++
			*dest = cachedUser{ID: 1, Username: "testuser"}
			return nil
		}
	}

	var first cachedUser
	require.NoError(t, Aside(ctx, UserKey(1), &first, UserTTL, fetch(&first)))
	assert.Equal(t, "testuser", first.Username)
	assert.True(t, mr.Exists(UserKey(1)))

	var second cachedUser
	require.NoError(t, Aside(ctx, UserKey(1), &second, UserTTL, fetch(&second)))
	assert.Equal(t, "testuser", second.Username)
	assert.Equal(t, 1, calls)

	mr.FastForward(UserTTL + time.Second)
	assert.False(t, mr.Exists(UserKey(1)))
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := setupMiniredis(t)

	boom := errors.New("boom")
	var u cachedUser
	err := Aside(context.Background(), UserKey(2), &u, UserTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(UserKey(2)))
}

func TestAside_RedisDownFallsBackToFetch(t *testing.T) {
	mr := setupMiniredis(t)
	mr.Close()

	var u cachedUser
	err := Aside(context.Background(), UserKey(3), &u, UserTTL, func() error {
		u = cachedUser{ID: 3, Username: "fallback"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", u.Username)
}

func TestInvalidateUser(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	assert.Equal(t, "warbler:user:4", UserKey(4))
	require.NoError(t, SetJSON(ctx, UserKey(4), cachedUser{ID: 4}, UserTTL))
	require.NoError(t, SetJSON(ctx, UserKey(5), cachedUser{ID: 5}, UserTTL))
	assert.True(t, mr.Exists(UserKey(4)))

	InvalidateUser(ctx, 4, 5)
	assert.False(t, mr.Exists(UserKey(4)))
	assert.False(t, mr.Exists(UserKey(5)))
}

func TestNilClientIsNoop(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	found, err := GetJSON(ctx, "missing", &cachedUser{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetJSON(ctx, "k", 1, time.Minute))
	InvalidateUser(ctx, 1)
}

func TestOptions(t *testing.T) {
	opts, err := Options("localhost:6380")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)

	opts, err = Options("redis://:secret@cache:6379/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = Options("  ")
	assert.Error(t, err)
	_, err = Options("redis://cache:6379/notadb")
	assert.Error(t, err)
}

func TestInitRedis(t *testing.T) {
	t.Cleanup(func() { SetClient(nil) })
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb := InitRedis(ctx, "redis://"+mr.Addr()+"/0")
	require.NotNil(t, rdb)
	assert.Same(t, rdb, GetClient())
	_ = rdb.Close()

	mr.Close()
	assert.Nil(t, InitRedis(ctx, mr.Addr()))
	assert.Nil(t, GetClient())
}

func TestErrorCounter(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	before := promtest.ToFloat64(observability.RedisErrors.WithLabelValues("get"))

	_, err := GetClient().Get(ctx, "missing").Result()
	assert.ErrorIs(t, err, redis.Nil)
	assert.Equal(t, before, promtest.ToFloat64(observability.RedisErrors.WithLabelValues("get")))

	mr.Close()
	_, err = GetClient().Get(ctx, "missing").Result()
	assert.Error(t, err)
	assert.Equal(t, before+1, promtest.ToFloat64(observability.RedisErrors.WithLabelValues("get")))
}
