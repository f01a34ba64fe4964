// Command server is a multi-tenant HTTP API. Every request is bound to a
// tenant resolved from the request, and each database statement it issues
// runs against that tenant's database or schema over a shared pool.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/multitenant/pkg/config"
	"github.com/dmitrymomot/multitenant/pkg/httpserver"
	"github.com/dmitrymomot/multitenant/pkg/logger"
	"github.com/dmitrymomot/multitenant/pkg/mysql"
	"github.com/dmitrymomot/multitenant/pkg/pg"
	"github.com/dmitrymomot/multitenant/pkg/redis"
	"github.com/dmitrymomot/multitenant/pkg/requestid"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
	"github.com/dmitrymomot/multitenant/pkg/tenantdb"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var logCfg logger.Config
	if err := config.Load(&logCfg); err != nil {
		return err
	}
	log, err := logger.NewFromConfig(logCfg, logger.WithContextExtractors(
		requestid.LoggerExtractor(),
		tenant.LoggerExtractor(),
	))
	if err != nil {
		return err
	}
	logger.SetAsDefault(log)

	var (
		httpCfg   httpserver.Config
		tenantCfg tenant.Config
		dbCfg     tenantdb.Config
		redisCfg  redis.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&httpCfg) },
		func() error { return config.Load(&tenantCfg) },
		func() error { return config.Load(&dbCfg) },
		func() error { return config.Load(&redisCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	tenant.DefaultRegistry.Register("redis",
		tenant.RedisFactory(rdb, tenant.WithRedisKeyPrefix(redisCfg.HostKeyPrefix)))
	resolver, err := tenant.DefaultRegistry.Resolver(tenantCfg)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, dbCfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	a := &app{
		log:     log,
		store:   store,
		storage: redis.NewTenantStorageWithConfig(rdb, redisCfg),
	}

	checks := []httpserver.Check{
		{Name: "database", Probe: store.ping},
		{Name: "redis", Probe: redis.Healthcheck(rdb)},
	}
	router := a.routes(resolver,
		httpserver.HealthCheckHandler(log, 5*time.Second, checks...),
		promhttp.Handler(),
	)

	log.InfoContext(ctx, "starting server",
		slog.String("resolver", tenantCfg.Resolver),
		logger.Mode(store.adapter.Mode()),
	)
	return httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log)).Run(ctx, router)
}

// store is the tenant-routed database handle for the configured mode.
type store struct {
	adapter *tenantdb.Adapter
	pool    *tenantdb.Pool // schema mode
	db      *sql.DB        // database mode
}

func openStore(ctx context.Context, cfg tenantdb.Config, log *slog.Logger) (*store, error) {
	mode, err := tenantdb.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	switch mode {
	case tenantdb.ModeSchema:
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, err
		}
		adapter, err := tenantdb.NewFromConfig(cfg, tenantdb.WithLogger(log))
		if err != nil {
			return nil, err
		}
		pool, err := pg.ConnectTenant(ctx, pgCfg, adapter)
		if err != nil {
			return nil, err
		}
		return &store{adapter: adapter, pool: pool}, nil

	case tenantdb.ModeDatabase:
		var myCfg mysql.Config
		if err := config.Load(&myCfg); err != nil {
			return nil, err
		}
		// The DSN's database is where pooled connections start, so it is the
		// natural pool default when none is configured.
		if cfg.DefaultTarget == "" {
			if cfg.DefaultTarget, err = mysql.DefaultDatabase(myCfg); err != nil {
				return nil, err
			}
		}
		adapter, err := tenantdb.NewFromConfig(cfg, tenantdb.WithLogger(log))
		if err != nil {
			return nil, err
		}
		db, err := mysql.Connect(ctx, myCfg, adapter)
		if err != nil {
			return nil, err
		}
		return &store{adapter: adapter, db: db}, nil
	}
	return nil, errors.Join(tenantdb.ErrUnknownMode, errors.New(cfg.Mode))
}

func (s *store) ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Healthcheck(ctx)
	}
	return mysql.Healthcheck(s.db)(ctx)
}

// current reports the database or search path the tenant's statements
// actually run against.
func (s *store) current(ctx context.Context) (string, error) {
	var v sql.NullString
	if s.pool != nil {
		err := s.pool.QueryRow(ctx, "SELECT array_to_string(current_schemas(false), ',')").Scan(&v)
		return v.String, err
	}
	err := s.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&v)
	return v.String, err
}

func (s *store) close() {
	if s.pool != nil {
		s.pool.Pgx().Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
