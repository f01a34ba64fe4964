package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// stateKey is the pgconn custom data key holding the connection's State.
const stateKey = "tenantdb.state"

// PgConnState returns the State affixed to a physical PostgreSQL connection,
// creating it on first use. The state is dropped together with the connection.
func PgConnState(pc *pgconn.PgConn) *State {
	data := pc.CustomData()
	if st, ok := data[stateKey].(*State); ok {
		return st
	}
	st := &State{}
	data[stateKey] = st
	return st
}

// pgxConn adapts a *pgx.Conn to Conn.
type pgxConn struct {
	conn    *pgx.Conn
	adapter *Adapter
}

func (c pgxConn) State() *State {
	return PgConnState(c.conn.PgConn())
}

func (c pgxConn) Cursor(ctx context.Context, name string) (Cursor, error) {
	if name == "" {
		return pgxCursor{conn: c.conn}, nil
	}
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &serverCursor{tx: NewTx(tx, c.State(), c.adapter, nil), name: name}, nil
}

// pgxCursor runs statements directly on the connection.
type pgxCursor struct {
	conn *pgx.Conn
}

func (c pgxCursor) Exec(ctx context.Context, sql string) error {
	_, err := c.conn.Exec(ctx, sql)
	return err
}

func (pgxCursor) Close(context.Context) error { return nil }

// serverCursor owns the transaction a PostgreSQL named cursor lives in.
type serverCursor struct {
	tx   *Tx
	name string
}

// Exec runs sql inside the cursor's transaction.
func (c *serverCursor) Exec(ctx context.Context, sql string) error {
	_, err := c.tx.Exec(ctx, sql)
	return err
}

// Close commits the cursor's transaction.
func (c *serverCursor) Close(ctx context.Context) error {
	return c.tx.Commit(ctx)
}

// StreamTx runs query through a server-side cursor named name inside tx and
// calls fn for every row, fetching batch rows at a time. The cursor is closed
// and tx committed once the rows run out. Any failure rolls tx back.
func StreamTx(ctx context.Context, tx *Tx, name, query string, args []any, batch int, fn func(row pgx.CollectableRow) error) error {
	if batch <= 0 {
		batch = 100
	}
	ident := pgx.Identifier{name}.Sanitize()
	abort := func(cause error) error {
		return errors.Join(cause, tx.Rollback(ctx))
	}

	if _, err := tx.Exec(ctx, "DECLARE "+ident+" NO SCROLL CURSOR FOR "+query, args...); err != nil {
		return abort(err)
	}
	for {
		rows, err := tx.Query(ctx, fmt.Sprintf("FETCH FORWARD %d FROM %s", batch, ident))
		if err != nil {
			return abort(err)
		}
		n := 0
		for rows.Next() {
			n++
			if err := fn(rows); err != nil {
				rows.Close()
				return abort(err)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return abort(err)
		}
		if n < batch {
			break
		}
	}
	if _, err := tx.Exec(ctx, "CLOSE "+ident); err != nil {
		return abort(err)
	}
	return tx.Commit(ctx)
}

// Pool routes a pgxpool.Pool through an Adapter: every checkout is switched
// to the calling tenant's target before it is used.
type Pool struct {
	pool    *pgxpool.Pool
	adapter *Adapter
}

// NewPool wraps pool.
func NewPool(pool *pgxpool.Pool, adapter *Adapter) *Pool {
	return &Pool{pool: pool, adapter: adapter}
}

// Adapter returns the pool's adapter.
func (p *Pool) Adapter() *Adapter { return p.adapter }

// Pgx returns the underlying pool.
func (p *Pool) Pgx() *pgxpool.Pool { return p.pool }

// Acquire checks out a connection switched to the tenant bound to ctx.
// The caller must Release it.
func (p *Pool) Acquire(ctx context.Context) (*PoolConn, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	pc := &PoolConn{conn: c, adapter: p.adapter}
	if err := p.adapter.Ensure(ctx, pc.asConn()); err != nil {
		c.Release()
		return nil, err
	}
	return pc, nil
}

// Exec acquires a connection, executes sql and releases it.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c, err := p.Acquire(ctx)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	defer c.Release()
	return c.conn.Exec(ctx, sql, args...)
}

// Query acquires a connection and runs sql. The connection is released when
// the rows are closed or fully read.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		c.Release()
		return nil, err
	}
	return &releasingRows{Rows: rows, release: c.Release}, nil
}

// QueryRow acquires a connection and runs sql. The connection is released by Scan.
func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	c, err := p.Acquire(ctx)
	if err != nil {
		return errRow{err: err}
	}
	return &releasingRow{row: c.conn.QueryRow(ctx, sql, args...), release: c.Release}
}

// BeginTx starts a transaction on a connection switched to the tenant bound
// to ctx. The connection is released when the transaction ends.
func (p *Pool) BeginTx(ctx context.Context, opts pgx.TxOptions) (*Tx, error) {
	c, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := c.BeginTx(ctx, opts)
	if err != nil {
		c.Release()
		return nil, err
	}
	tx.release = c.Release
	return tx, nil
}

// Stream runs query through a server-side cursor named name and calls fn for
// every row, fetching batch rows at a time. The tenant directive is issued
// on the connection before the cursor's transaction begins.
func (p *Pool) Stream(ctx context.Context, name, query string, args []any, batch int, fn func(row pgx.CollectableRow) error) error {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Release()

	conn := pgxConn{conn: c.Conn(), adapter: p.adapter}
	cur, err := p.adapter.AcquireCursor(ctx, conn, name)
	if err != nil {
		return err
	}
	sc, ok := cur.(*serverCursor)
	if !ok {
		_ = cur.Close(ctx)
		return ErrNamedCursorUnsupported
	}
	return StreamTx(ctx, sc.tx, sc.name, query, args, batch, fn)
}

// Healthcheck pings the database through a tenant-agnostic checkout.
func (p *Pool) Healthcheck(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// PoolConn is a checked out connection. Every statement first makes sure the
// connection runs against the tenant bound to the statement's context.
type PoolConn struct {
	conn    *pgxpool.Conn
	adapter *Adapter
}

func (c *PoolConn) asConn() Conn {
	return pgxConn{conn: c.conn.Conn(), adapter: c.adapter}
}

// State returns the connection's applied tenant state.
func (c *PoolConn) State() *State {
	return PgConnState(c.conn.Conn().PgConn())
}

// Exec executes sql.
func (c *PoolConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if err := c.adapter.Ensure(ctx, c.asConn()); err != nil {
		return pgconn.CommandTag{}, err
	}
	return c.conn.Exec(ctx, sql, args...)
}

// Query runs sql.
func (c *PoolConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if err := c.adapter.Ensure(ctx, c.asConn()); err != nil {
		return nil, err
	}
	return c.conn.Query(ctx, sql, args...)
}

// QueryRow runs sql.
func (c *PoolConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if err := c.adapter.Ensure(ctx, c.asConn()); err != nil {
		return errRow{err: err}
	}
	return c.conn.QueryRow(ctx, sql, args...)
}

// BeginTx starts a transaction.
func (c *PoolConn) BeginTx(ctx context.Context, opts pgx.TxOptions) (*Tx, error) {
	if err := c.adapter.Ensure(ctx, c.asConn()); err != nil {
		return nil, err
	}
	tx, err := c.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return NewTx(tx, c.State(), c.adapter, nil), nil
}

// Release returns the connection to the pool.
func (c *PoolConn) Release() {
	c.conn.Release()
}

// Tx is a pgx transaction whose rollback is reported to the adapter.
// Savepoints started through Begin are not tracked.
type Tx struct {
	pgx.Tx
	state   *State
	adapter *Adapter
	release func()
	once    sync.Once
}

// NewTx wraps tx begun on a connection whose tenant state is st. A rollback,
// including one caused by a failed commit, is reported to adapter. release,
// when non-nil, runs once the transaction has ended.
func NewTx(tx pgx.Tx, st *State, adapter *Adapter, release func()) *Tx {
	return &Tx{Tx: tx, state: st, adapter: adapter, release: release}
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	err := t.Tx.Commit(ctx)
	if err != nil {
		// A failed commit ends in a rollback on the server.
		t.adapter.ObserveRollback(t.state)
	}
	t.done()
	return err
}

// Rollback rolls the transaction back.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.Tx.Rollback(ctx)
	if !errors.Is(err, pgx.ErrTxClosed) {
		t.adapter.ObserveRollback(t.state)
	}
	t.done()
	return err
}

func (t *Tx) done() {
	t.once.Do(func() {
		if t.release != nil {
			t.release()
		}
	})
}

type releasingRows struct {
	pgx.Rows
	release func()
	once    sync.Once
}

func (r *releasingRows) Next() bool {
	if r.Rows.Next() {
		return true
	}
	r.Close()
	return false
}

func (r *releasingRows) Close() {
	r.Rows.Close()
	r.once.Do(r.release)
}

type releasingRow struct {
	row     pgx.Row
	release func()
}

func (r *releasingRow) Scan(dest ...any) error {
	defer r.release()
	return r.row.Scan(dest...)
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error { return r.err }
