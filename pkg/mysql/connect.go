package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/dmitrymomot/multitenant/pkg/tenantdb"
)

// DefaultDatabase returns the database named in the DSN: the database every
// pooled connection starts in, and what tenant.PoolDefault stands for.
func DefaultDatabase(cfg Config) (string, error) {
	mcfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return "", errors.Join(ErrFailedToParseDSN, err)
	}
	return mcfg.DBName, nil
}

// Connect opens the pool shared by every tenant. Each statement runs on a
// connection switched with USE to the database of the tenant bound to the
// statement's context. Retries with a linearly growing delay until the
// server answers a ping.
func Connect(ctx context.Context, cfg Config, adapter *tenantdb.Adapter) (*sql.DB, error) {
	if adapter.Mode() != tenantdb.ModeDatabase {
		return nil, ErrDatabaseModeRequired
	}
	mcfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDSN, err)
	}
	connector, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDSN, err)
	}

	db := tenantdb.OpenDB(connector, adapter)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	var lastErr error
	for i := range cfg.RetryAttempts {
		if lastErr = db.PingContext(ctx); lastErr == nil {
			return db, nil
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, errors.Join(ErrFailedToOpenDBConnection, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	_ = db.Close()
	return nil, errors.Join(ErrFailedToOpenDBConnection, lastErr)
}

// Healthcheck returns a func(context.Context) error suitable for health endpoints.
func Healthcheck(db *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
