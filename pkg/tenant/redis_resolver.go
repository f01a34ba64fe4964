package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// StringGetter is the subset of a Redis client used by RedisResolver.
// *redis.Client, *redis.ClusterClient and redis.UniversalClient satisfy it.
type StringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisResolver maps a request hostname to a tenant name stored in Redis
// under "<KeyPrefix><hostname>". Target and cache prefix follow Naming.
type RedisResolver struct {
	client    StringGetter
	keyPrefix string
	naming    Naming
	cache     LookupCache
	cacheTTL  time.Duration
	group     singleflight.Group

	lookupTimeout time.Duration
}

// DefaultLookupTimeout bounds a shared hostname lookup in Redis.
const DefaultLookupTimeout = 5 * time.Second

// RedisResolverOption configures a RedisResolver.
type RedisResolverOption func(*RedisResolver)

// WithRedisKeyPrefix namespaces the hostname keys in Redis.
func WithRedisKeyPrefix(prefix string) RedisResolverOption {
	return func(r *RedisResolver) { r.keyPrefix = prefix }
}

// WithRedisNaming sets how target and cache prefix derive from the tenant name.
func WithRedisNaming(n Naming) RedisResolverOption {
	return func(r *RedisResolver) { r.naming = n }
}

// WithLookupTimeout bounds each shared Redis lookup. Non-positive values are ignored.
func WithLookupTimeout(d time.Duration) RedisResolverOption {
	return func(r *RedisResolver) {
		if d > 0 {
			r.lookupTimeout = d
		}
	}
}

// WithLookupCache caches hostname lookups for ttl.
func WithLookupCache(cache LookupCache, ttl time.Duration) RedisResolverOption {
	return func(r *RedisResolver) {
		if cache != nil {
			r.cache = cache
			r.cacheTTL = ttl
		}
	}
}

// NewRedisResolver creates a resolver backed by Redis hostname mappings.
// Lookups are not cached unless WithLookupCache is given.
func NewRedisResolver(client StringGetter, opts ...RedisResolverOption) *RedisResolver {
	r := &RedisResolver{
		client: client,
		naming: DefaultNaming,
		cache:  NewNoOpCache(),

		lookupTimeout: DefaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveTenantName looks the request hostname up in Redis.
// Concurrent lookups for the same hostname share one round-trip. The shared
// lookup runs detached from any single caller, bounded by the lookup timeout;
// each caller stops waiting when its own context is done.
func (r *RedisResolver) ResolveTenantName(req *http.Request) (string, error) {
	host := hostname(req.Host)
	if host == "" {
		return "", ErrTenantNotFound
	}
	ctx := req.Context()

	if name, ok := r.cache.Get(ctx, host); ok {
		return name, nil
	}

	ch := r.group.DoChan(host, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.lookupTimeout)
		defer cancel()

		name, err := r.client.Get(lookupCtx, r.keyPrefix+host).Result()
		if errors.Is(err, redis.Nil) || (err == nil && name == "") {
			return "", fmt.Errorf("%w: unknown tenant for hostname %q", ErrTenantNotFound, host)
		}
		if err != nil {
			return "", err
		}
		r.cache.Set(lookupCtx, host, name, r.cacheTTL)
		return name, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// ResolveTarget applies the resolver's Naming.
func (r *RedisResolver) ResolveTarget(req *http.Request, tenantName string) (Target, error) {
	return r.naming.resolveTarget(req, tenantName)
}

// ResolveCachePrefix applies the resolver's Naming.
func (r *RedisResolver) ResolveCachePrefix(req *http.Request, tenantName string, target Target) (string, error) {
	return r.naming.resolveCachePrefix(req, tenantName, target)
}

// Forget drops a cached hostname lookup.
func (r *RedisResolver) Forget(ctx context.Context, host string) {
	r.cache.Delete(ctx, hostname(host))
}

// Close releases the lookup cache.
func (r *RedisResolver) Close() error {
	return r.cache.Close()
}

// RedisFactory returns a registry factory building a RedisResolver over client
// with an in-memory lookup cache living for cfg.LookupTTL. Extra options are
// applied last.
func RedisFactory(client StringGetter, extra ...RedisResolverOption) Factory {
	return func(cfg Config) (Resolver, error) {
		if client == nil {
			return nil, errors.New("redis client is nil")
		}
		opts := []RedisResolverOption{WithRedisNaming(cfg.Naming())}
		if cfg.LookupTTL > 0 {
			opts = append(opts, WithLookupCache(NewInMemoryCache(), cfg.LookupTTL))
		}
		return NewRedisResolver(client, append(opts, extra...)...), nil
	}
}
