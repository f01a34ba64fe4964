// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry. The tenant package uses it to remember hostname to
// tenant lookups for a bounded time.
//
//	c := cache.NewLRUCache[string, string](1000)
//	c.PutTTL("acme.example.com", "acme", 5*time.Minute)
//	name, ok := c.Get("acme.example.com")
//
// Expired entries are dropped lazily on Get, or in bulk by PurgeExpired.
package cache
