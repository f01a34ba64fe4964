package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/multitenant/pkg/cache"
)

// LookupCache memoizes lookups that map a request attribute (such as a
// hostname) to a tenant name, so resolvers backed by a remote store do not
// hit it on every request.
type LookupCache interface {
	// Get retrieves a tenant name by lookup key.
	Get(ctx context.Context, key string) (string, bool)

	// Set stores a tenant name with the given TTL.
	Set(ctx context.Context, key string, tenantName string, ttl time.Duration)

	// Delete removes a lookup key, e.g. after a tenant was renamed or removed.
	Delete(ctx context.Context, key string)

	// Close releases any resources held by the cache.
	Close() error
}

// inMemoryCache is the default LookupCache: a bounded LRU with per-entry
// expiry and a background sweep of expired entries.
type inMemoryCache struct {
	lru       *cache.LRUCache[string, string]
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// DefaultCacheSize is the default maximum number of items in the cache.
const DefaultCacheSize = 1000

const cleanupInterval = time.Minute

// NewInMemoryCache creates a new in-memory lookup cache with automatic cleanup.
// Close stops the cleanup goroutine.
func NewInMemoryCache() LookupCache {
	return NewInMemoryCacheWithSize(DefaultCacheSize)
}

// NewInMemoryCacheWithSize creates a new in-memory lookup cache with specified size limit.
func NewInMemoryCacheWithSize(maxSize int) LookupCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	c := &inMemoryCache{
		lru:  cache.NewLRUCache[string, string](maxSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func (c *inMemoryCache) Get(_ context.Context, key string) (string, bool) {
	return c.lru.Get(key)
}

// Set stores a tenant name. A non-positive ttl is ignored, as nothing
// would ever be served from it.
func (c *inMemoryCache) Set(_ context.Context, key string, tenantName string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.lru.PutTTL(key, tenantName, ttl)
}

func (c *inMemoryCache) Delete(_ context.Context, key string) {
	c.lru.Remove(key)
}

func (c *inMemoryCache) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-ticker.C:
			c.lru.PurgeExpired()
		case <-c.stop:
			return
		}
	}
}

// Close stops the cleanup goroutine and waits for it to finish.
func (c *inMemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		<-c.done
	})
	return nil
}

// noOpCache is a cache that doesn't cache anything.
// Useful for testing or when every lookup must reach the backing store.
type noOpCache struct{}

// NewNoOpCache creates a cache that doesn't cache.
func NewNoOpCache() LookupCache {
	return &noOpCache{}
}

func (n *noOpCache) Get(ctx context.Context, key string) (string, bool) {
	return "", false
}

func (n *noOpCache) Set(ctx context.Context, key string, tenantName string, ttl time.Duration) {
}

func (n *noOpCache) Delete(ctx context.Context, key string) {
}

func (n *noOpCache) Close() error {
	return nil
}
