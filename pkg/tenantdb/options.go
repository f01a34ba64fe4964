package tenantdb

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

// Fallback derives a target when the request context has none.
// found is false when no target can be derived.
type Fallback func(ctx context.Context, mode Mode) (target tenant.Target, found bool, err error)

// EnvFallback reads TENANT_DATABASE_NAME, and in schema mode TENANT_NAME after it.
func EnvFallback(_ context.Context, mode Mode) (tenant.Target, bool, error) {
	o, err := tenant.LoadOverrides()
	if err != nil {
		return tenant.Target{}, false, err
	}
	if mode == ModeSchema {
		t, ok := o.SchemaTarget()
		return t, ok, nil
	}
	t, ok := o.DatabaseTarget()
	return t, ok, nil
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithFallback replaces the environment fallback. A nil fallback disables it.
func WithFallback(f Fallback) Option {
	return func(a *Adapter) {
		a.fallback = f
	}
}

// WithDefaultTarget names the database or search path that the pool default
// stands for. Without it, switching a connection back to the pool default
// fails in database mode and resets the search path in schema mode.
// Panics if name is not a valid target.
func WithDefaultTarget(name string) Option {
	if err := tenant.Named(name).Validate(); err != nil {
		panic("tenantdb: invalid default target " + name)
	}
	return func(a *Adapter) {
		a.defaultTarget = name
	}
}

// WithLogger sets the logger for applied directives.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics registers directive metrics with reg instead of the default registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(a *Adapter) {
		a.metrics = newMetrics(reg)
	}
}

// WithTracer sets the tracer for directive spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Adapter) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}
