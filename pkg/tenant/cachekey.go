package tenant

import (
	"context"
	"strconv"
	"strings"
)

// KeyDelimiter separates the parts of a namespaced cache key.
const KeyDelimiter = ":"

// KeyFunc builds a cache key for the tenant bound to ctx.
type KeyFunc func(ctx context.Context, key, keyPrefix string, version int) (string, error)

// CacheKey namespaces key under the cache prefix of the tenant bound to ctx:
// "<cache_prefix>:<key_prefix>:<version>:<key>".
// Returns ErrTenantNotBound when ctx carries no cache prefix.
func CacheKey(ctx context.Context, key, keyPrefix string, version int) (string, error) {
	tc, ok := FromContext(ctx)
	if !ok {
		return "", ErrTenantNotBound
	}
	return tc.CacheKey(key, keyPrefix, version)
}

var _ KeyFunc = CacheKey

// CacheKey namespaces key under this context's cache prefix.
func (c *Context) CacheKey(key, keyPrefix string, version int) (string, error) {
	prefix, ok := c.CachePrefix()
	if !ok {
		return "", ErrTenantNotBound
	}
	return buildKey(prefix, keyPrefix, version, key), nil
}

func buildKey(prefix, keyPrefix string, version int, key string) string {
	var b strings.Builder
	b.Grow(len(prefix) + len(keyPrefix) + len(key) + 8)
	b.WriteString(prefix)
	b.WriteString(KeyDelimiter)
	b.WriteString(keyPrefix)
	b.WriteString(KeyDelimiter)
	b.WriteString(strconv.Itoa(version))
	b.WriteString(KeyDelimiter)
	b.WriteString(key)
	return b.String()
}
