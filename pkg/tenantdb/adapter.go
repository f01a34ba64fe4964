package tenantdb

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/multitenant/pkg/logger"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

const tracerName = "github.com/dmitrymomot/multitenant/pkg/tenantdb"

// Conn is a physical database connection as seen by the Adapter.
type Conn interface {
	// Cursor opens a statement handle. An empty name opens an ordinary
	// cursor; a non-empty name opens a server-side named cursor.
	Cursor(ctx context.Context, name string) (Cursor, error)
	// State returns the state affixed to the physical connection.
	State() *State
}

// Cursor executes statements on a Conn.
type Cursor interface {
	Exec(ctx context.Context, sql string) error
	Close(ctx context.Context) error
}

// Adapter makes sure every cursor handed out runs against the target of the
// tenant bound to the calling context.
type Adapter struct {
	mode          Mode
	fallback      Fallback
	defaultTarget string
	logger        *slog.Logger
	metrics       *metrics
	tracer        trace.Tracer
}

// New creates an adapter for the given mode.
func New(mode Mode, opts ...Option) *Adapter {
	a := &Adapter{
		mode:     mode,
		fallback: EnvFallback,
		logger:   slog.Default(),
		metrics:  getDefaultMetrics(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Mode returns the adapter's mode.
func (a *Adapter) Mode() Mode { return a.mode }

// AcquireCursor returns a cursor on conn after making sure the connection
// runs against the tenant's target. At most one directive is issued, and
// none if the connection already carries the target. Named cursors never
// carry the directive themselves: it runs on a short-lived unnamed cursor
// first.
func (a *Adapter) AcquireCursor(ctx context.Context, conn Conn, name string) (Cursor, error) {
	target, err := a.target(ctx)
	if err != nil {
		return nil, err
	}

	if name != "" {
		if err := a.ensure(ctx, conn, target); err != nil {
			return nil, err
		}
		return conn.Cursor(ctx, name)
	}

	cur, err := conn.Cursor(ctx, "")
	if err != nil {
		return nil, err
	}
	if err := a.apply(ctx, conn.State(), cur, target); err != nil {
		_ = cur.Close(ctx)
		return nil, err
	}
	return cur, nil
}

// Ensure applies the tenant's target to conn without handing out a cursor.
func (a *Adapter) Ensure(ctx context.Context, conn Conn) error {
	target, err := a.target(ctx)
	if err != nil {
		return err
	}
	return a.ensure(ctx, conn, target)
}

// ObserveRollback records a rolled back transaction on the connection.
// In schema mode a rollback may revert SET search_path, so the next
// acquisition re-issues the directive.
func (a *Adapter) ObserveRollback(st *State) {
	if a != nil && a.mode == ModeSchema && st != nil {
		st.MarkStale()
	}
}

func (a *Adapter) ensure(ctx context.Context, conn Conn, target tenant.Target) error {
	st := conn.State()
	if st.Matches(target) {
		return nil
	}
	cur, err := conn.Cursor(ctx, "")
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return a.apply(ctx, st, cur, target)
}

// target reads the bound target, falling back when the context has none.
// A fallback result is written back into the bound tenant.Context.
func (a *Adapter) target(ctx context.Context) (tenant.Target, error) {
	tc, hasContext := tenant.FromContext(ctx)
	if hasContext && tc.Target().IsSet() {
		return tc.Target(), nil
	}
	if a.fallback == nil {
		return tenant.Target{}, tenant.ErrTenantNotBound
	}

	target, found, err := a.fallback(ctx, a.mode)
	if err != nil {
		return tenant.Target{}, err
	}
	if !found || !target.IsSet() {
		return tenant.Target{}, tenant.ErrTenantNotBound
	}
	if err := target.Validate(); err != nil {
		return tenant.Target{}, err
	}
	if hasContext {
		if err := tc.SetTarget(target); err != nil {
			return tenant.Target{}, err
		}
	}
	return target, nil
}

// directive returns the statement moving a connection to target.
func (a *Adapter) directive(target tenant.Target) (string, error) {
	if target.IsNamed() {
		return a.mode.Statement(target.Name()), nil
	}
	if a.defaultTarget != "" {
		return a.mode.Statement(a.defaultTarget), nil
	}
	if a.mode == ModeSchema {
		return resetSearchPath, nil
	}
	return "", ErrDefaultUnavailable
}

func (a *Adapter) apply(ctx context.Context, st *State, cur Cursor, target tenant.Target) error {
	if st.Matches(target) {
		return nil
	}
	stmt, err := a.directive(target)
	if err != nil {
		return err
	}

	ctx, span := a.tracer.Start(ctx, "tenantdb.apply",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("tenantdb.mode", a.mode.String()),
			attribute.String("tenantdb.target", target.String()),
		),
	)
	defer span.End()

	start := time.Now()
	err = cur.Exec(ctx, stmt)
	elapsed := time.Since(start)
	a.metrics.observe(a.mode, elapsed.Seconds(), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "directive failed")
		a.logger.ErrorContext(ctx, "tenant directive failed",
			logger.Mode(a.mode),
			logger.Target(target),
			logger.Error(err),
		)
		return errors.Join(ErrStatementFailed, err)
	}

	st.set(target)
	span.SetStatus(codes.Ok, "")
	a.logger.DebugContext(ctx, "tenant directive applied",
		logger.Statement(stmt),
		logger.Latency(elapsed),
	)
	return nil
}
