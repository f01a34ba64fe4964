package tenant

import (
	"context"
	"errors"

	"github.com/caarlos0/env/v11"
)

// Overrides are process-wide tenant settings for entry points that do not go
// through Middleware, such as batch jobs and migrations.
// Empty values mean "not provided".
type Overrides struct {
	TenantName   string `env:"TENANT_NAME"`          // TenantName binds the tenant name, and the search path in schema mode when no database name is given.
	DatabaseName string `env:"TENANT_DATABASE_NAME"` // DatabaseName is the target database or search path.
	CachePrefix  string `env:"TENANT_CACHE_PREFIX"`  // CachePrefix is the cache namespace.
}

// LoadOverrides reads the overrides from the process environment.
// They are read on every call, never cached.
func LoadOverrides() (Overrides, error) {
	o, err := env.ParseAs[Overrides]()
	if err != nil {
		return Overrides{}, errors.Join(ErrResolution, err)
	}
	return o, nil
}

// LoadOverridesFrom reads the overrides from the given environment map.
func LoadOverridesFrom(environ map[string]string) (Overrides, error) {
	o, err := env.ParseAsWithOptions[Overrides](env.Options{Environment: environ})
	if err != nil {
		return Overrides{}, errors.Join(ErrResolution, err)
	}
	return o, nil
}

// DatabaseTarget returns the database-mode target: TENANT_DATABASE_NAME.
func (o Overrides) DatabaseTarget() (Target, bool) {
	if o.DatabaseName == "" {
		return Target{}, false
	}
	return Named(o.DatabaseName), true
}

// SchemaTarget returns the schema-mode target: TENANT_DATABASE_NAME, then TENANT_NAME.
func (o Overrides) SchemaTarget() (Target, bool) {
	if t, ok := o.DatabaseTarget(); ok {
		return t, true
	}
	if o.TenantName == "" {
		return Target{}, false
	}
	return Named(o.TenantName), true
}

// Bind builds a Context from the overrides using the given target.
// TENANT_NAME and TENANT_CACHE_PREFIX are bound only when present, so a
// Context without a tenant name never reports itself as bound.
func (o Overrides) Bind(target Target) (*Context, error) {
	tc := NewContext()
	if err := tc.Set(o.TenantName, target, o.CachePrefix); err != nil {
		return nil, err
	}
	if o.TenantName == "" {
		tc.tenantName, tc.hasTenantName = "", false
	}
	if o.CachePrefix == "" {
		tc.cachePrefix, tc.hasCachePrefix = "", false
	}
	return tc, nil
}

// FromEnv binds a tenant from the process environment and attaches it to ctx.
// schema selects the schema-mode fallback chain for the target.
// Returns ErrTenantNotBound when no target can be derived.
func FromEnv(ctx context.Context, schema bool) (context.Context, *Context, error) {
	o, err := LoadOverrides()
	if err != nil {
		return ctx, nil, err
	}
	target, ok := o.DatabaseTarget()
	if schema {
		target, ok = o.SchemaTarget()
	}
	if !ok {
		return ctx, nil, ErrTenantNotBound
	}
	tc, err := o.Bind(target)
	if err != nil {
		return ctx, nil, err
	}
	return WithContext(ctx, tc), tc, nil
}
