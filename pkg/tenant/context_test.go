package tenant_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

func TestContext(t *testing.T) {
	t.Parallel()

	t.Run("new context is unbound", func(t *testing.T) {
		t.Parallel()

		tc := tenant.NewContext()
		_, ok := tc.TenantName()
		assert.False(t, ok)
		_, ok = tc.CachePrefix()
		assert.False(t, ok)
		assert.False(t, tc.Target().IsSet())
		assert.False(t, tc.Bound())
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		t.Parallel()

		tc := tenant.NewContext()
		require.NoError(t, tc.Set("foo", tenant.Named("tenant-foo"), "tenant-foo"))

		name, ok := tc.TenantName()
		require.True(t, ok)
		assert.Equal(t, "foo", name)
		assert.Equal(t, tenant.Named("tenant-foo"), tc.Target())
		prefix, ok := tc.CachePrefix()
		require.True(t, ok)
		assert.Equal(t, "tenant-foo", prefix)
		assert.True(t, tc.Bound())
	})

	t.Run("semicolon target is rejected without mutation", func(t *testing.T) {
		t.Parallel()

		tc := tenant.NewContext()
		require.NoError(t, tc.Set("foo", tenant.Named("tenant-foo"), "tenant-foo"))

		err := tc.Set("evil", tenant.Named("x; DROP DATABASE y"), "evil")
		require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)

		name, _ := tc.TenantName()
		assert.Equal(t, "foo", name)
		assert.Equal(t, tenant.Named("tenant-foo"), tc.Target())
		prefix, _ := tc.CachePrefix()
		assert.Equal(t, "tenant-foo", prefix)
	})

	t.Run("cache prefix with key delimiter is rejected without mutation", func(t *testing.T) {
		t.Parallel()

		tc := tenant.NewContext()
		require.NoError(t, tc.Set("a", tenant.Named("tenant-a"), "tenant-a"))

		err := tc.Set("a:cache:1:x", tenant.Named("tenant-x"), "tenant-a:cache:1:x")
		require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)

		name, _ := tc.TenantName()
		assert.Equal(t, "a", name)
		prefix, _ := tc.CachePrefix()
		assert.Equal(t, "tenant-a", prefix)
	})

	t.Run("set target validates", func(t *testing.T) {
		t.Parallel()

		tc := tenant.NewContext()
		require.ErrorIs(t, tc.SetTarget(tenant.Named("a;b")), tenant.ErrInvalidIdentifier)
		assert.False(t, tc.Target().IsSet())

		require.NoError(t, tc.SetTarget(tenant.Named("a,public")))
		assert.Equal(t, "a,public", tc.Target().Name())
	})

	t.Run("reset clears every field", func(t *testing.T) {
		t.Parallel()

		tc := tenant.NewContext()
		require.NoError(t, tc.Set("foo", tenant.PoolDefault(), "p"))
		tc.Reset()
		tc.Reset()

		_, ok := tc.TenantName()
		assert.False(t, ok)
		_, ok = tc.CachePrefix()
		assert.False(t, ok)
		assert.False(t, tc.Target().IsSet())
		assert.False(t, tc.Bound())
	})

	t.Run("reset on nil context does not panic", func(t *testing.T) {
		t.Parallel()

		var tc *tenant.Context
		assert.NotPanics(t, tc.Reset)
	})

	t.Run("separate contexts do not share state", func(t *testing.T) {
		t.Parallel()

		var wg sync.WaitGroup
		for _, name := range []string{"a", "b", "c", "d"} {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				tc := tenant.NewContext()
				for range 100 {
					require.NoError(t, tc.Set(name, tenant.Named("db-"+name), name))
					got, _ := tc.TenantName()
					assert.Equal(t, name, got)
					tc.Reset()
				}
			}(name)
		}
		wg.Wait()
	})
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("returns attached context", func(t *testing.T) {
		t.Parallel()

		tc := tenant.NewContext()
		ctx := tenant.WithContext(context.Background(), tc)

		got, ok := tenant.FromContext(ctx)
		require.True(t, ok)
		assert.Same(t, tc, got)
	})

	t.Run("returns false when missing", func(t *testing.T) {
		t.Parallel()

		_, ok := tenant.FromContext(context.Background())
		assert.False(t, ok)
	})

	t.Run("returns false for nil context value", func(t *testing.T) {
		t.Parallel()

		ctx := tenant.WithContext(context.Background(), nil)
		_, ok := tenant.FromContext(ctx)
		assert.False(t, ok)
	})

	t.Run("must panics when unbound", func(t *testing.T) {
		t.Parallel()

		ctx := tenant.WithContext(context.Background(), tenant.NewContext())
		assert.Panics(t, func() { tenant.MustFromContext(ctx) })
	})

	t.Run("must returns bound context", func(t *testing.T) {
		t.Parallel()

		tc := tenant.NewContext()
		require.NoError(t, tc.Set("foo", tenant.PoolDefault(), "foo"))
		ctx := tenant.WithContext(context.Background(), tc)
		assert.Same(t, tc, tenant.MustFromContext(ctx))
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := tenant.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	tc := tenant.NewContext()
	require.NoError(t, tc.Set("acme", tenant.PoolDefault(), "acme"))
	attr, ok := extract(tenant.WithContext(context.Background(), tc))
	require.True(t, ok)
	assert.Equal(t, slog.String("tenant", "acme"), attr)
}
