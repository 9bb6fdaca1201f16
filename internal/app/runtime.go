// README: Opens what a binary needs from Config: platform session, optional Redis and Postgres.
package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fleetops/internal/config"
	"fleetops/internal/infra"
	"fleetops/internal/logger"
	"fleetops/internal/modules/billing"
	"fleetops/internal/modules/dispatch"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/platform"
)

type Runtime struct {
	Session   *Session
	Redis     *redis.Client
	DB        *pgxpool.Pool
	Processed dispatch.ProcessedStore

	deps Deps
	log  *zap.Logger
}

// Open builds the session. Redis and Postgres are optional: an empty address skips them and
// an unreachable one is logged and skipped, so read-only commands still work without them.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (*Runtime, error) {
	log = logger.OrNop(log)
	loc, err := cfg.Platform.Location()
	if err != nil {
		return nil, err
	}
	rt := &Runtime{log: log}
	deps := Deps{Platform: cfg.Platform, Location: loc, Log: log}

	if cfg.Redis.Addr != "" {
		rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Warn("redis unavailable; detail cache and durable monitor claims disabled", zap.Error(err))
		} else {
			rt.Redis = rdb
			deps.Cache = fleet.NewStore(rdb)
			rt.Processed = dispatch.NewStore(rdb)
		}
	}
	if rt.Processed == nil {
		rt.Processed = dispatch.NewMemoryStore()
	}

	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Warn("database unavailable; billing reports will not be archived", zap.Error(err))
		} else {
			rt.DB = pool
			deps.Archive = billing.NewStore(pool)
		}
	}

	rt.deps = deps
	rt.Session = NewSession(platform.NewClient(cfg.Platform, log.Named("platform")), deps)
	return rt, nil
}

// Monitor builds the cancellation monitor. Each tick runs on the stack current when the tick
// starts, so a token rotation takes effect from the next tick on.
func (rt *Runtime) Monitor(cfg config.MonitorConfig) *dispatch.Monitor {
	backend := func() (dispatch.RideSource, *dispatch.Executor) {
		st := rt.Current()
		return st.Fleet, st.Dispatch.Executor()
	}
	return dispatch.NewMonitor(backend, rt.Current().Matcher, rt.Processed, cfg, rt.log.Named("monitor"))
}

func (rt *Runtime) Current() *Stack {
	return rt.Session.Current()
}

func (rt *Runtime) Close() {
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
	if rt.DB != nil {
		rt.DB.Close()
	}
}
