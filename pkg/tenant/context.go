package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/multitenant/pkg/logger"
)

// Context is the mutable tenant state of a single in-flight request.
//
// It is created by Middleware, attached to the request's context.Context and
// reset when the request ends. A Context is owned by one request and must not
// be mutated concurrently.
type Context struct {
	tenantName     string
	target         Target
	cachePrefix    string
	hasTenantName  bool
	hasCachePrefix bool
}

// NewContext returns an unbound Context.
func NewContext() *Context {
	return &Context{}
}

// Set binds the tenant. The target and cache prefix are validated before
// anything is written, so a rejected call leaves the previous state intact.
// A cache prefix may not contain KeyDelimiter: namespaces of two tenants must
// never nest.
func (c *Context) Set(tenantName string, target Target, cachePrefix string) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if strings.Contains(cachePrefix, KeyDelimiter) {
		return fmt.Errorf("%w: cache prefix %q contains %q", ErrInvalidIdentifier, cachePrefix, KeyDelimiter)
	}
	c.tenantName, c.hasTenantName = tenantName, true
	c.target = target
	c.cachePrefix, c.hasCachePrefix = cachePrefix, true
	return nil
}

// SetTarget replaces only the target. Used by fallbacks that derive the target
// outside the request flow.
func (c *Context) SetTarget(target Target) error {
	if err := target.Validate(); err != nil {
		return err
	}
	c.target = target
	return nil
}

// TenantName returns the bound tenant name.
func (c *Context) TenantName() (string, bool) {
	return c.tenantName, c.hasTenantName
}

// Target returns the bound target; the zero Target when unbound.
func (c *Context) Target() Target {
	return c.target
}

// CachePrefix returns the bound cache prefix.
func (c *Context) CachePrefix() (string, bool) {
	return c.cachePrefix, c.hasCachePrefix
}

// Bound reports whether a tenant is currently bound.
func (c *Context) Bound() bool {
	return c.hasTenantName && c.target.IsSet()
}

// Reset clears every field. Safe to call any number of times.
func (c *Context) Reset() {
	if c == nil {
		return
	}
	*c = Context{}
}

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithContext attaches a tenant Context to ctx.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext retrieves the tenant Context from ctx.
// Returns nil, false if none is attached.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	tc, ok := ctx.Value(contextKey{}).(*Context)
	return tc, ok && tc != nil
}

// MustFromContext retrieves a bound tenant Context from ctx.
// Panics if none is bound. Use this only in handlers
// that absolutely require a tenant to function.
func MustFromContext(ctx context.Context) *Context {
	tc, ok := FromContext(ctx)
	if !ok || !tc.Bound() {
		panic("tenant: no tenant bound in context")
	}
	return tc
}

// LoggerExtractor returns a logger.ContextExtractor that adds the bound
// tenant name to log records.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if tc, ok := FromContext(ctx); ok {
			if name, ok := tc.TenantName(); ok {
				return logger.Tenant(name), true
			}
		}
		return slog.Attr{}, false
	}
}
