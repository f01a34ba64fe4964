package tenantdb_test

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrymomot/multitenant/pkg/tenant"
	"github.com/dmitrymomot/multitenant/pkg/tenantdb"
)

// fakeConn is a physical connection that records every statement per cursor.
type fakeConn struct {
	mu         sync.Mutex
	state      tenantdb.State
	statements []string
	cursors    []*fakeCursor
	failNext   error
}

func (c *fakeConn) Cursor(_ context.Context, name string) (tenantdb.Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := &fakeCursor{conn: c, name: name}
	c.cursors = append(c.cursors, cur)
	return cur, nil
}

func (c *fakeConn) State() *tenantdb.State { return &c.state }

func (c *fakeConn) executed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statements...)
}

type fakeCursor struct {
	conn       *fakeConn
	name       string
	statements []string
	closed     bool
}

func (c *fakeCursor) Exec(_ context.Context, sql string) error {
	c.conn.mu.Lock()
	defer c.conn.mu.Unlock()
	if err := c.conn.failNext; err != nil {
		c.conn.failNext = nil
		return err
	}
	c.statements = append(c.statements, sql)
	c.conn.statements = append(c.conn.statements, sql)
	return nil
}

func (c *fakeCursor) Close(context.Context) error {
	c.closed = true
	return nil
}

// pgError stands in for a backend error type callers match with errors.As.
type pgError struct {
	Code string
}

func (e *pgError) Error() string { return "backend error " + e.Code }

var errBackend = errors.New("backend unavailable")

func bound(target tenant.Target) context.Context {
	tc := tenant.NewContext()
	if err := tc.Set("t", target, "t"); err != nil {
		panic(err)
	}
	return tenant.WithContext(context.Background(), tc)
}

func noFallback() tenantdb.Option { return tenantdb.WithFallback(nil) }
