package tenant_test

import (
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

func TestConfig(t *testing.T) {
	t.Parallel()

	cfg, err := env.ParseAsWithOptions[tenant.Config](env.Options{Environment: map[string]string{
		"TENANT_RESOLVER":       "schema",
		"TENANT_SHARED_SCHEMAS": "public,extensions",
	}})
	require.NoError(t, err)

	assert.Equal(t, "schema", cfg.Resolver)
	assert.Equal(t, []string{"public", "extensions"}, cfg.SharedSchemas)
	assert.Equal(t, "X-Tenant-ID", cfg.HeaderName)
	assert.Equal(t, 1, cfg.PathPosition)
	assert.Equal(t, tenant.Naming{TargetPrefix: "tenant-", CachePrefix: "tenant-"}, cfg.Naming())
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("default registry knows built-in resolvers", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, []string{"header", "path", "schema", "subdomain"}, tenant.DefaultRegistry.Names())
	})

	t.Run("path resolver reads the configured segment", func(t *testing.T) {
		t.Parallel()

		res, err := tenant.NewDefaultRegistry().Resolver(tenant.Config{Resolver: "path", PathPosition: 2, TargetPrefix: "db_"})
		require.NoError(t, err)

		req := newRequest("api.example.com")
		req.URL.Path = "/tenants/acme/settings"
		name, err := res.ResolveTenantName(req)
		require.NoError(t, err)
		assert.Equal(t, "acme", name)
		target, err := res.ResolveTarget(req, name)
		require.NoError(t, err)
		assert.Equal(t, tenant.Named("db_acme"), target)
	})

	t.Run("path resolver rejects a zero position", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.NewDefaultRegistry().Resolver(tenant.Config{Resolver: "path"})
		assert.Error(t, err)
	})

	t.Run("builds the configured resolver", func(t *testing.T) {
		t.Parallel()

		r := tenant.NewRegistry()
		r.Register("header", func(cfg tenant.Config) (tenant.Resolver, error) {
			return tenant.NewHeaderResolver(cfg.HeaderName), nil
		})

		res, err := r.Resolver(tenant.Config{Resolver: "header", HeaderName: "X-Org"})
		require.NoError(t, err)

		req := newRequest("api.example.com")
		req.Header.Set("X-Org", "acme")
		name, err := res.ResolveTenantName(req)
		require.NoError(t, err)
		assert.Equal(t, "acme", name)
	})

	t.Run("builds once", func(t *testing.T) {
		t.Parallel()

		var builds int
		var mu sync.Mutex
		r := tenant.NewRegistry()
		r.Register("counting", func(tenant.Config) (tenant.Resolver, error) {
			mu.Lock()
			builds++
			mu.Unlock()
			return tenant.ResolverFuncs{TenantName: func(*http.Request) (string, error) { return "x", nil }}, nil
		})

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := r.Resolver(tenant.Config{Resolver: "counting"})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		// A different name after the first build still returns the cached resolver.
		_, err := r.Resolver(tenant.Config{Resolver: "other"})
		require.NoError(t, err)
		assert.Equal(t, 1, builds)
	})

	t.Run("unknown resolver", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.NewRegistry().Resolver(tenant.Config{Resolver: "nope"})
		assert.ErrorIs(t, err, tenant.ErrUnknownResolver)
	})

	t.Run("factory error is kept", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		r := tenant.NewRegistry()
		r.Register("broken", func(tenant.Config) (tenant.Resolver, error) { return nil, boom })

		_, err := r.Resolver(tenant.Config{Resolver: "broken"})
		require.ErrorIs(t, err, boom)
		_, err = r.Resolver(tenant.Config{Resolver: "broken"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("register panics on nil factory", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { tenant.NewRegistry().Register("x", nil) })
	})
}
