// Package pg bootstraps the PostgreSQL side of a schema-per-tenant deployment
// on top of pgx/v5.
//
// Connect opens the single pool every tenant shares, retrying until the
// database answers. ConnectTenant wraps that pool in a tenantdb.Pool, which
// switches the search path of each checkout to the tenant bound to the
// request context. Migrate runs goose migrations for one tenant: the tenant
// schema is created if needed and the migrations, including goose's version
// table, are applied inside it.
//
// # Usage
//
//	cfg, _ := config.Load[pg.Config]()
//	adapter := tenantdb.New(tenantdb.ModeSchema)
//
//	pool, err := pg.ConnectTenant(ctx, cfg, adapter)
//	if err != nil {
//		return err
//	}
//	defer pool.Pgx().Close()
//
//	// batch job: TENANT_NAME=acme
//	ctx, _, err = tenant.FromEnv(ctx, true)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool.Pgx(), adapter, cfg, slog.Default()); err != nil {
//		return err
//	}
//
// # Errors
//
// IsDuplicateKeyError, IsForeignKeyViolationError and IsUndefinedTableError
// classify *pgconn.PgError values, also when joined with
// tenantdb.ErrStatementFailed.
package pg
