// Package bootstrap builds the session gateway the console and the CLI share.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"invoice-console/internal/audit"
	"invoice-console/internal/config"
	"invoice-console/internal/session"
	"invoice-console/pkg/utils"
)

// OpenGateway builds the credential store selected by cfg and the gateway on top
// of it. The returned func releases the store and its connections.
func OpenGateway(ctx context.Context, cfg config.Config, log *slog.Logger, onExpired func(context.Context)) (*session.Gateway, func(), error) {
	var (
		deps    session.Dependencies
		guard   session.LoginGuard
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Session.Store {
	case config.StoreRedis:
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		deps.Redis = rdb
		// processes sharing a profile also share the login guard
		guard = session.NewRedisGuard(rdb, cfg.Session.Profile, 0)
	case config.StorePostgres:
		pool, err := utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := session.EnsureSchema(ctx, pool); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		deps.Postgres = pool
	}

	store, err := session.NewStore(session.StoreConfig{
		Driver:  cfg.Session.Store,
		File:    cfg.Session.File,
		Profile: cfg.Session.Profile,
	}, deps)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, func() { _ = store.Close() })

	gw, err := session.New(ctx, session.Options{
		BaseURL:   cfg.Backend.URL,
		Store:     store,
		Guard:     guard,
		Audit:     audit.NewService(audit.NewLogRepo(log), cfg.Session.Profile),
		Logger:    log,
		OnExpired: onExpired,
	})
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return gw, closeAll, nil
}
