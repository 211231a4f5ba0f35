package session

import (
	"context"
	"sync"
	"time"

	"invoice-console/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// LoginGuard keeps a single login in flight per profile.
type LoginGuard interface {
	// TryAcquire never blocks. ok is false when another login holds the guard.
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

type localGuard struct {
	mu sync.Mutex
}

// NewLocalGuard serializes logins inside one process.
func NewLocalGuard() LoginGuard {
	return &localGuard{}
}

func (g *localGuard) TryAcquire(_ context.Context) (func(), bool, error) {
	if !g.mu.TryLock() {
		return nil, false, nil
	}
	return g.mu.Unlock, true, nil
}

const redisGuardPrefix = "console:login:"

type redisGuard struct {
	rdb redis.Scripter
	key string
	ttl time.Duration
}

// NewRedisGuard serializes logins across console instances sharing a redis profile.
// ttl bounds how long a crashed holder can block others.
func NewRedisGuard(rdb redis.Scripter, profile string, ttl time.Duration) LoginGuard {
	if profile == "" {
		profile = "default"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisGuard{rdb: rdb, key: redisGuardPrefix + profile, ttl: ttl}
}

func (g *redisGuard) TryAcquire(ctx context.Context) (func(), bool, error) {
	ok, err := utils.AcquireConcurrencyCap(ctx, g.rdb, g.key, 1, g.ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		// the login context may already be cancelled
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = utils.ReleaseConcurrencyCap(rctx, g.rdb, g.key)
	}
	return release, true, nil
}
