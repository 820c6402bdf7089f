package cli

import (
	"fmt"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/codec"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
)

// OpenWorkspace initializes a Workspace on the store selected by the configuration.
func OpenWorkspace(s Settings, metrics *observability.Metrics, extra ...arbor.Option) (*arbor.Workspace, error) {
	cfg := s.Config
	opts := []arbor.Option{
		arbor.WithLogger(s.Logger),
		arbor.WithDirection(cfg.Direction),
	}
	if metrics != nil {
		opts = append(opts, arbor.WithMetrics(metrics))
	}

	var store ports.TreeStore
	switch cfg.Store {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreFile:
		format, err := codec.ParseFormat(cfg.Format)
		if err != nil {
			return nil, err
		}
		store = file.New(cfg.DataDir,
			file.WithFormat(format),
			file.WithLogger(s.Logger),
		)
	case config.StoreRedis:
		redisOpts := []redis.Option{redis.WithPrefix(cfg.Redis.Prefix)}
		if ttl := cfg.RedisTTL(); ttl > 0 {
			redisOpts = append(redisOpts, redis.WithTTL(ttl))
		}
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisOpts...)
		store = rs
		if cfg.Redis.Lock {
			opts = append(opts, arbor.WithLocker(redis.NewLocker(rs.Client(), cfg.Redis.Prefix)))
			if ttl := cfg.LockTTL(); ttl > 0 {
				opts = append(opts, arbor.WithLockTTL(ttl))
			}
		}
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	var mws []middleware.Middleware
	if cfg.Strict {
		mws = append(mws, middleware.NewStrictMiddleware())
	}
	if len(cfg.Redact) > 0 {
		redact, err := middleware.NewRedactionMiddleware(cfg.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, redact)
	}
	opts = append(opts, arbor.WithStore(middleware.Chain(store, mws...)))

	ws, err := arbor.New(append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("error initializing workspace: %w", err)
	}
	return ws, nil
}
