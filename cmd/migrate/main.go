// Command migrate applies the per-tenant migrations to one tenant's schema.
//
// The tenant comes from TENANT_NAME, TENANT_DATABASE_NAME and
// TENANT_CACHE_PREFIX, optionally read from dotenv files:
//
//	migrate -env tenants/acme.env
//	migrate -tenant acme
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dmitrymomot/multitenant/pkg/config"
	"github.com/dmitrymomot/multitenant/pkg/logger"
	"github.com/dmitrymomot/multitenant/pkg/pg"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
	"github.com/dmitrymomot/multitenant/pkg/tenantdb"
)

func main() {
	envFiles := flag.String("env", "", "comma separated dotenv files to load first")
	tenantName := flag.String("tenant", "", "tenant name, overrides TENANT_NAME")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *envFiles, *tenantName); err != nil {
		slog.Error("migration failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, envFiles, tenantName string) error {
	if envFiles != "" {
		if err := config.LoadDotenv(strings.Split(envFiles, ",")...); err != nil {
			return err
		}
	}
	if tenantName != "" {
		if err := os.Setenv("TENANT_NAME", tenantName); err != nil {
			return err
		}
	}

	var logCfg logger.Config
	if err := config.Load(&logCfg); err != nil {
		return err
	}
	log, err := logger.NewFromConfig(logCfg,
		logger.WithContextExtractors(tenant.LoggerExtractor()),
		logger.WithAttr(logger.Component("migrate")),
	)
	if err != nil {
		return err
	}
	logger.SetAsDefault(log)

	ctx, _, err = tenant.FromEnv(ctx, true)
	if err != nil {
		return err
	}

	var (
		pgCfg pg.Config
		dbCfg tenantdb.Config
	)
	if err := config.Load(&pgCfg); err != nil {
		return err
	}
	if err := config.Load(&dbCfg); err != nil {
		return err
	}

	adapter, err := tenantdb.NewFromConfig(dbCfg, tenantdb.WithLogger(log))
	if err != nil {
		return err
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return pg.Migrate(ctx, pool, adapter, pgCfg, log)
}
