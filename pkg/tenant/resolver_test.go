package tenant_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

func newRequest(host string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Host = host
	return req
}

func TestSubdomainResolver(t *testing.T) {
	t.Parallel()

	t.Run("extracts tenant from host", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewSubdomainResolver("")
		req := newRequest("acme.app.com")

		name, err := resolver.ResolveTenantName(req)
		require.NoError(t, err)
		assert.Equal(t, "acme", name)

		target, err := resolver.ResolveTarget(req, name)
		require.NoError(t, err)
		assert.Equal(t, tenant.Named("tenant-acme"), target)

		prefix, err := resolver.ResolveCachePrefix(req, name, target)
		require.NoError(t, err)
		assert.Equal(t, "tenant-acme", prefix)
	})

	t.Run("strips suffix and port", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewSubdomainResolver(".saas.com")

		name, err := resolver.ResolveTenantName(newRequest("Acme.saas.com:8080"))
		require.NoError(t, err)
		assert.Equal(t, "acme", name)
	})

	t.Run("skips www prefix", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewSubdomainResolver("")

		name, err := resolver.ResolveTenantName(newRequest("www.acme.app.com"))
		require.NoError(t, err)
		assert.Equal(t, "acme", name)
	})

	t.Run("fails without subdomain", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewSubdomainResolver("")
		for _, host := range []string{"app.com", "localhost", "", "localhost:8080"} {
			_, err := resolver.ResolveTenantName(newRequest(host))
			assert.ErrorIs(t, err, tenant.ErrTenantNotFound, host)
		}
	})

	t.Run("rejects labels outside the tenant alphabet", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewSubdomainResolver("")
		for _, host := range []string{"a:cache:1:x.app.com:80", "a:cache:1:x.app.com", "a*b.app.com", "a%20b.app.com"} {
			_, err := resolver.ResolveTenantName(newRequest(host))
			assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier, host)
		}

		name, err := resolver.ResolveTenantName(newRequest("acme-2_b.app.com"))
		require.NoError(t, err)
		assert.Equal(t, "acme-2_b", name)
	})

	t.Run("pool default naming", func(t *testing.T) {
		t.Parallel()

		resolver := &tenant.SubdomainResolver{Naming: tenant.Naming{UsePoolDefault: true, CachePrefix: "c-"}}
		req := newRequest("acme.app.com")

		target, err := resolver.ResolveTarget(req, "acme")
		require.NoError(t, err)
		assert.True(t, target.IsPoolDefault())

		prefix, err := resolver.ResolveCachePrefix(req, "acme", target)
		require.NoError(t, err)
		assert.Equal(t, "c-acme", prefix)
	})
}

func TestSchemaResolver(t *testing.T) {
	t.Parallel()

	t.Run("maps first label to schema", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewSchemaResolver()
		req := newRequest("Foo.example.com")

		name, err := resolver.ResolveTenantName(req)
		require.NoError(t, err)
		assert.Equal(t, "foo", name)

		target, err := resolver.ResolveTarget(req, name)
		require.NoError(t, err)
		assert.Equal(t, tenant.Named("foo"), target)

		prefix, err := resolver.ResolveCachePrefix(req, name, target)
		require.NoError(t, err)
		assert.Equal(t, "tenant-foo", prefix)
	})

	t.Run("appends shared schemas", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewSchemaResolver("public")

		target, err := resolver.ResolveTarget(newRequest("foo.example.com"), "foo")
		require.NoError(t, err)
		assert.Equal(t, tenant.Named("foo,public"), target)
		assert.NoError(t, target.Validate())
	})

	t.Run("rejects hosts without a word label", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewSchemaResolver()
		for _, host := range []string{"localhost", "foo-bar.example.com", ".example.com", ""} {
			_, err := resolver.ResolveTenantName(newRequest(host))
			assert.ErrorIs(t, err, tenant.ErrTenantNotFound, host)
		}
	})
}

func TestHeaderResolver(t *testing.T) {
	t.Parallel()

	t.Run("reads the configured header", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewHeaderResolver("X-Org")
		req := newRequest("api.example.com")
		req.Header.Set("X-Org", " acme_1 ")

		name, err := resolver.ResolveTenantName(req)
		require.NoError(t, err)
		assert.Equal(t, "acme_1", name)
	})

	t.Run("uses default header when empty", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewHeaderResolver("")
		req := newRequest("api.example.com")
		req.Header.Set("X-Tenant-ID", "acme")

		name, err := resolver.ResolveTenantName(req)
		require.NoError(t, err)
		assert.Equal(t, "acme", name)
	})

	t.Run("missing header is not found", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.NewHeaderResolver("").ResolveTenantName(newRequest("api.example.com"))
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("rejects malformed values", func(t *testing.T) {
		t.Parallel()

		for _, value := range []string{"a;b", "a b", "acme.com", "ac/me"} {
			req := newRequest("api.example.com")
			req.Header.Set("X-Tenant-ID", value)
			_, err := tenant.NewHeaderResolver("").ResolveTenantName(req)
			assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier, value)
		}
	})
}

func TestPathResolver(t *testing.T) {
	t.Parallel()

	pathRequest := func(path string) *http.Request {
		req := newRequest("api.example.com")
		req.URL.Path = path
		return req
	}

	t.Run("reads the segment at position", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewPathResolver(2)
		req := pathRequest("/tenants/acme/settings/")

		name, err := resolver.ResolveTenantName(req)
		require.NoError(t, err)
		assert.Equal(t, "acme", name)

		prefix, err := resolver.ResolveCachePrefix(req, name, tenant.Named("tenant-acme"))
		require.NoError(t, err)
		assert.Equal(t, "tenant-acme", prefix)
	})

	t.Run("missing segment is not found", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewPathResolver(2)
		for _, path := range []string{"/", "", "/tenants", "/tenants//x"} {
			_, err := resolver.ResolveTenantName(pathRequest(path))
			assert.ErrorIs(t, err, tenant.ErrTenantNotFound, path)
		}
	})

	t.Run("rejects segments outside the tenant alphabet", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewPathResolver(1)
		for _, path := range []string{"/a:cache:1:x/k", "/a;b", "/ac.me"} {
			_, err := resolver.ResolveTenantName(pathRequest(path))
			assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier, path)
		}
	})

	t.Run("invalid position fails", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.NewPathResolver(0).ResolveTenantName(pathRequest("/acme"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, tenant.ErrTenantNotFound)
	})
}

func TestResolverFuncs(t *testing.T) {
	t.Parallel()

	t.Run("delegates to functions", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.ResolverFuncs{
			TenantName: func(*http.Request) (string, error) { return "foo", nil },
			Target: func(_ *http.Request, name string) (tenant.Target, error) {
				return tenant.Named("db_" + name), nil
			},
			CachePrefix: func(_ *http.Request, name string, target tenant.Target) (string, error) {
				return name + "/" + target.Name(), nil
			},
		}
		req := newRequest("x")

		name, err := resolver.ResolveTenantName(req)
		require.NoError(t, err)
		target, err := resolver.ResolveTarget(req, name)
		require.NoError(t, err)
		prefix, err := resolver.ResolveCachePrefix(req, name, target)
		require.NoError(t, err)
		assert.Equal(t, "foo/db_foo", prefix)
	})

	t.Run("missing functions fail", func(t *testing.T) {
		t.Parallel()

		var resolver tenant.ResolverFuncs
		req := newRequest("x")

		_, err := resolver.ResolveTenantName(req)
		assert.Error(t, err)
		_, err = resolver.ResolveTarget(req, "foo")
		assert.Error(t, err)
		_, err = resolver.ResolveCachePrefix(req, "foo", tenant.PoolDefault())
		assert.Error(t, err)
	})

	t.Run("propagates errors", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		resolver := tenant.ResolverFuncs{TenantName: func(*http.Request) (string, error) { return "", boom }}

		_, err := resolver.ResolveTenantName(newRequest("x"))
		assert.ErrorIs(t, err, boom)
	})
}
