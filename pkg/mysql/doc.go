// Package mysql bootstraps the MySQL side of a database-per-tenant
// deployment on top of go-sql-driver/mysql.
//
// Connect returns a *sql.DB whose connections are routed through a
// tenantdb.Adapter in database mode: before a statement runs, the
// connection is switched with USE to the tenant's database, unless it is
// already there.
//
//	cfg, _ := config.Load[mysql.Config]()
//	def, _ := mysql.DefaultDatabase(cfg)
//	adapter := tenantdb.New(tenantdb.ModeDatabase, tenantdb.WithDefaultTarget(def))
//
//	db, err := mysql.Connect(ctx, cfg, adapter)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
// IsUnknownDatabaseError reports a tenant whose database does not exist.
package mysql
