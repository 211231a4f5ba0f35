package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGuard(t *testing.T) {
	g := NewLocalGuard()
	ctx := context.Background()

	release, ok, err := g.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = g.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release2, ok, err := g.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestRedisGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	a := NewRedisGuard(rdb, "acme", time.Minute)
	b := NewRedisGuard(rdb, "acme", time.Minute)
	other := NewRedisGuard(rdb, "globex", time.Minute)

	release, ok, err := a.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("console:login:acme"))

	_, ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "same profile must be serialized across instances")

	releaseOther, ok, err := other.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	releaseOther()

	release()
	assert.False(t, mr.Exists("console:login:acme"))

	release, ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	release()
}

func TestRedisGuard_TTLFreesCrashedHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	g := NewRedisGuard(rdb, "", 0)
	_, ok, err := g.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(31 * time.Second)

	_, ok, err = g.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuard_UnavailableIsLoginError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	fb := newFakeBackend(t)
	gw, err := New(context.Background(), Options{
		BaseURL: fb.URL,
		Store:   NewMemoryStore(),
		Guard:   NewRedisGuard(rdb, "acme", time.Minute),
	})
	require.NoError(t, err)

	_, err = gw.Login(context.Background(), "ops@example.com", "secret")
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, int32(0), fb.loginHits.Load())
}
