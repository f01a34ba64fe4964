package pg

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrymomot/multitenant/pkg/logger"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
	"github.com/dmitrymomot/multitenant/pkg/tenantdb"
)

// goose keeps its dialect, table name and logger in package globals.
var gooseMu sync.Mutex

// Migrate applies the per-tenant migrations to the schema of the tenant bound
// to ctx. Statements reach the database through adapter, so every migration
// and the version table land in that tenant's search path.
func Migrate(ctx context.Context, pool *pgxpool.Pool, adapter *tenantdb.Adapter, cfg Config, log migrationLogger) error {
	if cfg.MigrationsPath == "" {
		return errors.Join(ErrFailedToApplyMigrations, ErrMigrationPathNotProvided)
	}
	if _, err := os.Stat(cfg.MigrationsPath); err != nil {
		if os.IsNotExist(err) {
			return errors.Join(ErrMigrationsDirNotFound, err)
		}
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	if adapter.Mode() != tenantdb.ModeSchema {
		return errors.Join(ErrFailedToApplyMigrations, ErrSchemaModeRequired)
	}

	tc, ok := tenant.FromContext(ctx)
	if !ok || !tc.Target().IsSet() {
		return errors.Join(ErrFailedToApplyMigrations, tenant.ErrTenantNotBound)
	}
	target := tc.Target()

	if cfg.CreateSchema && target.IsNamed() {
		if err := CreateSchema(ctx, pool, target); err != nil {
			return errors.Join(ErrFailedToApplyMigrations, err)
		}
	}

	db := tenantdb.OpenDB(stdlib.GetPoolConnector(pool), adapter)
	db.SetMaxOpenConns(1)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration connection", logger.Error(err))
		}
	}()

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(&gooseLogger{ctx: ctx, log: log, target: target})
	goose.SetTableName(cfg.MigrationsTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	if err := goose.UpContext(ctx, db, cfg.MigrationsPath); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	log.InfoContext(ctx, "tenant migrations applied", logger.Target(target))
	return nil
}

// CreateSchema creates the first schema of a search-path target if missing.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool, target tenant.Target) error {
	schema, _, _ := strings.Cut(target.Name(), ",")
	schema = strings.TrimSpace(schema)
	if schema == "" {
		return tenant.ErrInvalidIdentifier
	}
	_, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize())
	return err
}
