package tenantdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/jackc/pgx/v5/stdlib"
)

// WrapConnector returns a connector whose connections run Ensure with the
// statement's context before every exec, query, prepare and begin.
func WrapConnector(c driver.Connector, adapter *Adapter) driver.Connector {
	return &connector{base: c, adapter: adapter}
}

// OpenDB is sql.OpenDB over WrapConnector.
func OpenDB(c driver.Connector, adapter *Adapter) *sql.DB {
	return sql.OpenDB(WrapConnector(c, adapter))
}

type connector struct {
	base    driver.Connector
	adapter *Adapter
}

func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	dc, err := c.base.Connect(ctx)
	if err != nil {
		return nil, err
	}
	w := &conn{base: dc, adapter: c.adapter}
	// pgx connections keep their state on the physical connection so the
	// native pool and database/sql agree on what was applied.
	if sc, ok := dc.(*stdlib.Conn); ok {
		w.state = PgConnState(sc.Conn().PgConn())
	} else {
		w.state = &State{}
		w.ownsState = true
	}
	return w, nil
}

func (c *connector) Driver() driver.Driver {
	return c.base.Driver()
}

var (
	_ driver.Conn               = (*conn)(nil)
	_ driver.ConnBeginTx        = (*conn)(nil)
	_ driver.ConnPrepareContext = (*conn)(nil)
	_ driver.ExecerContext      = (*conn)(nil)
	_ driver.QueryerContext     = (*conn)(nil)
	_ driver.Pinger             = (*conn)(nil)
	_ driver.SessionResetter    = (*conn)(nil)
	_ driver.Validator          = (*conn)(nil)
	_ driver.NamedValueChecker  = (*conn)(nil)
	_ Conn                      = (*conn)(nil)
)

// conn is a driver connection routed through an Adapter.
type conn struct {
	base      driver.Conn
	adapter   *Adapter
	state     *State
	ownsState bool
}

// Cursor implements Conn. database/sql has no named cursors.
func (c *conn) Cursor(_ context.Context, name string) (Cursor, error) {
	if name != "" {
		return nil, ErrNamedCursorUnsupported
	}
	return sqlCursor{c: c}, nil
}

// State implements Conn.
func (c *conn) State() *State { return c.state }

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if err := c.adapter.Ensure(ctx, c); err != nil {
		return nil, err
	}
	if pc, ok := c.base.(driver.ConnPrepareContext); ok {
		return pc.PrepareContext(ctx, query)
	}
	return c.base.Prepare(query)
}

func (c *conn) Close() error {
	if c.ownsState {
		c.state.Invalidate()
	}
	return c.base.Close()
}

func (c *conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if err := c.adapter.Ensure(ctx, c); err != nil {
		return nil, err
	}
	var (
		tx  driver.Tx
		err error
	)
	if bc, ok := c.base.(driver.ConnBeginTx); ok {
		tx, err = bc.BeginTx(ctx, opts)
	} else {
		//nolint:staticcheck // fallback for drivers without ConnBeginTx
		tx, err = c.base.Begin()
	}
	if err != nil {
		return nil, err
	}
	return &sqlTx{base: tx, conn: c}, nil
}

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := c.base.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	if err := c.adapter.Ensure(ctx, c); err != nil {
		return nil, err
	}
	return execer.ExecContext(ctx, query, args)
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	queryer, ok := c.base.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	if err := c.adapter.Ensure(ctx, c); err != nil {
		return nil, err
	}
	return queryer.QueryContext(ctx, query, args)
}

func (c *conn) Ping(ctx context.Context) error {
	if p, ok := c.base.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *conn) ResetSession(ctx context.Context) error {
	if r, ok := c.base.(driver.SessionResetter); ok {
		return r.ResetSession(ctx)
	}
	return nil
}

func (c *conn) IsValid() bool {
	if v, ok := c.base.(driver.Validator); ok {
		return v.IsValid()
	}
	return true
}

func (c *conn) CheckNamedValue(nv *driver.NamedValue) error {
	if nc, ok := c.base.(driver.NamedValueChecker); ok {
		return nc.CheckNamedValue(nv)
	}
	return driver.ErrSkip
}

// exec runs a directive on the underlying connection, bypassing Ensure.
func (c *conn) exec(ctx context.Context, query string) error {
	if execer, ok := c.base.(driver.ExecerContext); ok {
		_, err := execer.ExecContext(ctx, query, nil)
		if !errors.Is(err, driver.ErrSkip) {
			return err
		}
	}
	var (
		stmt driver.Stmt
		err  error
	)
	if pc, ok := c.base.(driver.ConnPrepareContext); ok {
		stmt, err = pc.PrepareContext(ctx, query)
	} else {
		stmt, err = c.base.Prepare(query)
	}
	if err != nil {
		return err
	}
	defer stmt.Close()
	if se, ok := stmt.(driver.StmtExecContext); ok {
		_, err = se.ExecContext(ctx, nil)
		return err
	}
	//nolint:staticcheck // fallback for drivers without StmtExecContext
	_, err = stmt.Exec(nil)
	return err
}

type sqlCursor struct {
	c *conn
}

func (s sqlCursor) Exec(ctx context.Context, query string) error {
	return s.c.exec(ctx, query)
}

func (sqlCursor) Close(context.Context) error { return nil }

type sqlTx struct {
	base driver.Tx
	conn *conn
}

func (t *sqlTx) Commit() error {
	return t.base.Commit()
}

func (t *sqlTx) Rollback() error {
	err := t.base.Rollback()
	t.conn.adapter.ObserveRollback(t.conn.state)
	return err
}
