// Package tenantdb routes database connections to the tenant bound to the
// calling context.
//
// All tenants share one connection pool. Before a connection is used, the
// Adapter compares the target of the tenant in ctx (see package tenant) with
// the target last applied to that physical connection and, only if they
// differ, issues a single directive:
//
//   - ModeDatabase (MySQL):     USE `<target>`;
//   - ModeSchema (PostgreSQL):  SET search_path TO <target>
//
// The applied target is kept on the physical connection: in the pgconn
// custom data for pgx, and on the wrapping driver connection for
// database/sql. Repeated acquisitions for the same tenant therefore cost no
// extra round-trip.
//
// # Bindings
//
//	adapter := tenantdb.New(tenantdb.ModeSchema)
//
//	// pgx
//	pool := tenantdb.NewPool(pgxPool, adapter)
//	rows, err := pool.Query(ctx, "SELECT id, title FROM posts")
//
//	// database/sql (MySQL, or pgx through stdlib)
//	connector, _ := mysql.NewConnector(cfg)
//	db := tenantdb.OpenDB(connector, tenantdb.New(tenantdb.ModeDatabase))
//
// When ctx has no target, the Adapter falls back to TENANT_DATABASE_NAME
// (and TENANT_NAME in schema mode) and otherwise fails with
// tenant.ErrTenantNotBound. A failed directive returns ErrStatementFailed
// joined with the backend error and leaves the connection state unchanged.
//
// In schema mode a rolled back transaction may revert the search path, so
// the bindings mark the connection stale and the next use re-issues it.
package tenantdb
