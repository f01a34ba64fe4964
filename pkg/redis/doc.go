// Package redis connects to Redis and keeps tenants' cached data apart.
//
// Connect retries until the server answers a PING. TenantStorage is a
// key-value store whose every key is namespaced with tenant.CacheKey, so
// one Redis database serves all tenants without collisions:
//
//	store := redis.NewTenantStorageWithConfig(client, cfg)
//
//	// inside a request bound by tenant.Middleware
//	err := store.Set(r.Context(), "profile:42", data, time.Hour)
//	// stored as "tenant-acme:cache:1:profile:42"
//
// Reset removes only the bound tenant's keys (SCAN + DEL over its
// namespace), never the whole database.
//
// Healthcheck returns a probe for liveness and readiness endpoints.
package redis
