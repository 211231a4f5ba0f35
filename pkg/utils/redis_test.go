package utils

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRedis_RequiresAddr(t *testing.T) {
	_, err := OpenRedis(context.Background(), RedisConfig{})
	assert.Error(t, err)
}

func TestConcurrencyCap_SingleSlot(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	rdb, err := OpenRedis(ctx, RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	ok, err := AcquireConcurrencyCap(ctx, rdb, "login:default", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = AcquireConcurrencyCap(ctx, rdb, "login:default", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be rejected")

	require.NoError(t, ReleaseConcurrencyCap(ctx, rdb, "login:default"))
	assert.False(t, mr.Exists("login:default"))

	ok, err = AcquireConcurrencyCap(ctx, rdb, "login:default", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrencyCap_TTLBoundsLeakedSlot(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	rdb, err := OpenRedis(ctx, RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	ok, err := AcquireConcurrencyCap(ctx, rdb, "k", 1, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = AcquireConcurrencyCap(ctx, rdb, "k", 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrencyCap_ValidatesArgs(t *testing.T) {
	_, err := AcquireConcurrencyCap(context.Background(), nil, "k", 1, time.Second)
	assert.Error(t, err)
}
