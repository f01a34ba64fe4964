// Package tenant binds every inbound request to exactly one tenant.
//
// A Resolver maps the request to a tenant name, a Target and a cache prefix.
// Middleware runs the resolver, stores the result in a per-request Context
// carried by the request's context.Context, and resets it when the handler
// returns. Downstream code reads the binding with FromContext; the tenantdb
// package reads the Target to route database statements, and CacheKey
// namespaces cache keys under the tenant's prefix.
//
// # Usage
//
//	import "github.com/dmitrymomot/multitenant/pkg/tenant"
//
//	resolver := tenant.NewSubdomainResolver(".saas.com")
//
//	router.Use(tenant.Middleware(resolver,
//		tenant.WithSkipPaths([]string{"/healthz", "/metrics"}),
//	))
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		key, err := tenant.CacheKey(r.Context(), "profile:42", "users", 1)
//		// key == "tenant-acme:users:1:profile:42" for acme.app.saas.com
//	}
//
// # Targets
//
// A Target is unset, PoolDefault or Named. PoolDefault keeps the pool's own
// database; Named selects a database (database mode) or a search path
// (schema mode). Named targets containing ';' are rejected with
// ErrInvalidIdentifier. So are cache prefixes containing KeyDelimiter.
//
// # Resolvers
//
//   - SubdomainResolver: first host label, e.g. "acme" from "acme.app.com"
//   - SchemaResolver: first host label as a PostgreSQL schema
//   - HeaderResolver: tenant from a trusted header such as "X-Tenant-ID"
//   - PathResolver: tenant from a URL path segment, e.g. "acme" from "/tenants/acme"
//   - RedisResolver: hostname to tenant lookup stored in Redis
//
// The process-wide resolver is chosen by TENANT_RESOLVER through a Registry.
//
// # Batch entry points
//
// Outside HTTP, FromEnv binds a tenant from TENANT_NAME, TENANT_DATABASE_NAME
// and TENANT_CACHE_PREFIX.
//
// # Errors
//
//   - ErrTenantNotFound: the request does not map to a tenant
//   - ErrInvalidIdentifier: malformed tenant or target name
//   - ErrTenantNotBound: a target or cache prefix was needed but none is bound
//   - ErrResolution: a resolver step failed; wraps the cause
//   - ErrUnknownResolver: TENANT_RESOLVER names no registered factory
package tenant
