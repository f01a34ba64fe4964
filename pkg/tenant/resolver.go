package tenant

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
)

// Resolver maps an inbound request to a tenant. The three steps run in order
// for every request: the tenant name feeds target resolution, and both feed
// cache-prefix resolution. Implementations must be idempotent within a request.
type Resolver interface {
	// ResolveTenantName returns an opaque identifier for the request's tenant.
	// Returns ErrTenantNotFound if the request does not map to a tenant.
	ResolveTenantName(r *http.Request) (string, error)

	// ResolveTarget returns the database or search path for the tenant.
	// Return PoolDefault() to keep the pool's default database.
	ResolveTarget(r *http.Request, tenantName string) (Target, error)

	// ResolveCachePrefix returns the cache namespace for the tenant.
	ResolveCachePrefix(r *http.Request, tenantName string, target Target) (string, error)
}

// ResolverFuncs is an adapter to allow the use of ordinary functions as a Resolver.
type ResolverFuncs struct {
	TenantName  func(r *http.Request) (string, error)
	Target      func(r *http.Request, tenantName string) (Target, error)
	CachePrefix func(r *http.Request, tenantName string, target Target) (string, error)
}

var errResolverFuncMissing = errors.New("resolver function not configured")

// ResolveTenantName calls TenantName.
func (f ResolverFuncs) ResolveTenantName(r *http.Request) (string, error) {
	if f.TenantName == nil {
		return "", errResolverFuncMissing
	}
	return f.TenantName(r)
}

// ResolveTarget calls Target.
func (f ResolverFuncs) ResolveTarget(r *http.Request, tenantName string) (Target, error) {
	if f.Target == nil {
		return Target{}, errResolverFuncMissing
	}
	return f.Target(r, tenantName)
}

// ResolveCachePrefix calls CachePrefix.
func (f ResolverFuncs) ResolveCachePrefix(r *http.Request, tenantName string, target Target) (string, error) {
	if f.CachePrefix == nil {
		return "", errResolverFuncMissing
	}
	return f.CachePrefix(r, tenantName, target)
}

// Naming derives the target and cache prefix from a tenant name.
type Naming struct {
	// TargetPrefix is prepended to the tenant name to form the database name.
	TargetPrefix string
	// CachePrefix is prepended to the tenant name to form the cache namespace.
	CachePrefix string
	// UsePoolDefault keeps the pool's default database instead of a per-tenant one.
	UsePoolDefault bool
}

// DefaultNaming maps tenant "acme" to database "tenant-acme" and cache prefix "tenant-acme".
var DefaultNaming = Naming{TargetPrefix: "tenant-", CachePrefix: "tenant-"}

// Target returns the target for the tenant.
func (n Naming) Target(tenantName string) Target {
	if n.UsePoolDefault {
		return PoolDefault()
	}
	return Named(n.TargetPrefix + tenantName)
}

// Prefix returns the cache prefix for the tenant.
func (n Naming) Prefix(tenantName string) string {
	return n.CachePrefix + tenantName
}

func (n Naming) resolveTarget(_ *http.Request, tenantName string) (Target, error) {
	return n.Target(tenantName), nil
}

func (n Naming) resolveCachePrefix(_ *http.Request, tenantName string, _ Target) (string, error) {
	return n.Prefix(tenantName), nil
}

// hostLabel matches a lower-cased hostname label usable as a tenant name.
var hostLabel = regexp.MustCompile(`^[a-z0-9_-]+$`)

// SubdomainResolver takes the first part of the hostname as the tenant:
// "acme.app.com:8000" resolves to "acme".
type SubdomainResolver struct {
	// Suffix to strip from the host (e.g., ".saas.com")
	// If empty, only the first subdomain part is used.
	Suffix string
	Naming Naming
}

// NewSubdomainResolver creates a new subdomain resolver using DefaultNaming.
func NewSubdomainResolver(suffix string) *SubdomainResolver {
	return &SubdomainResolver{Suffix: suffix, Naming: DefaultNaming}
}

// ResolveTenantName extracts the tenant from the subdomain. Labels outside
// [a-z0-9_-] are rejected with ErrInvalidIdentifier.
func (r *SubdomainResolver) ResolveTenantName(req *http.Request) (string, error) {
	host := hostname(req.Host)

	// Count dots to determine if we have a subdomain
	originalParts := strings.Split(host, ".")
	if len(originalParts) < 3 {
		// Not enough parts for subdomain.domain.tld
		return "", ErrTenantNotFound
	}

	// Strip suffix if configured, making sure we're not stripping the entire domain
	if r.Suffix != "" && strings.HasSuffix(host, r.Suffix) && len(host) > len(r.Suffix) {
		host = host[:len(host)-len(r.Suffix)]
	}

	parts := strings.Split(host, ".")
	subdomain := parts[0]
	if subdomain == "www" {
		if len(parts) < 2 {
			return "", ErrTenantNotFound
		}
		subdomain = parts[1]
	}
	if subdomain == "" {
		return "", ErrTenantNotFound
	}
	if !hostLabel.MatchString(subdomain) {
		return "", ErrInvalidIdentifier
	}

	return subdomain, nil
}

// ResolveTarget applies the resolver's Naming.
func (r *SubdomainResolver) ResolveTarget(req *http.Request, tenantName string) (Target, error) {
	return r.Naming.resolveTarget(req, tenantName)
}

// ResolveCachePrefix applies the resolver's Naming.
func (r *SubdomainResolver) ResolveCachePrefix(req *http.Request, tenantName string, target Target) (string, error) {
	return r.Naming.resolveCachePrefix(req, tenantName, target)
}

var schemaLabel = regexp.MustCompile(`^\w+$`)

// SchemaResolver maps the first hostname label to a PostgreSQL schema of the
// same name: "foo.example.com" selects search path "foo" (or "foo,public"
// with SharedSchemas set to []string{"public"}).
type SchemaResolver struct {
	// SharedSchemas are appended to the tenant schema so shared tables stay visible.
	SharedSchemas []string
	// CachePrefix is prepended to the tenant name to form the cache namespace.
	CachePrefix string
}

// NewSchemaResolver creates a schema resolver with the "tenant-" cache prefix.
func NewSchemaResolver(sharedSchemas ...string) *SchemaResolver {
	return &SchemaResolver{SharedSchemas: sharedSchemas, CachePrefix: "tenant-"}
}

// ResolveTenantName takes the first hostname label. Labels that are not plain
// word characters are rejected, since the name is issued in a SET statement.
func (r *SchemaResolver) ResolveTenantName(req *http.Request) (string, error) {
	host := hostname(req.Host)
	label, _, found := strings.Cut(host, ".")
	if !found || !schemaLabel.MatchString(label) {
		return "", ErrTenantNotFound
	}
	return label, nil
}

// ResolveTarget returns the tenant schema followed by the shared schemas.
func (r *SchemaResolver) ResolveTarget(_ *http.Request, tenantName string) (Target, error) {
	if len(r.SharedSchemas) == 0 {
		return Named(tenantName), nil
	}
	return Named(strings.Join(append([]string{tenantName}, r.SharedSchemas...), ",")), nil
}

// ResolveCachePrefix returns CachePrefix + tenant name.
func (r *SchemaResolver) ResolveCachePrefix(_ *http.Request, tenantName string, _ Target) (string, error) {
	return r.CachePrefix + tenantName, nil
}

// tenantToken matches a tenant name taken verbatim from a header or path.
var tenantToken = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// HeaderResolver reads the tenant from an HTTP header. Only intended behind a
// trusted proxy that sets the header itself.
type HeaderResolver struct {
	// HeaderName is the name of the header to read (e.g., "X-Tenant-ID")
	HeaderName string
	Naming     Naming
}

// NewHeaderResolver creates a new header resolver using DefaultNaming.
func NewHeaderResolver(headerName string) *HeaderResolver {
	if headerName == "" {
		headerName = "X-Tenant-ID"
	}
	return &HeaderResolver{HeaderName: headerName, Naming: DefaultNaming}
}

// ResolveTenantName reads the configured header.
func (r *HeaderResolver) ResolveTenantName(req *http.Request) (string, error) {
	value := strings.TrimSpace(req.Header.Get(r.HeaderName))
	if value == "" {
		return "", ErrTenantNotFound
	}
	if !tenantToken.MatchString(value) {
		return "", ErrInvalidIdentifier
	}
	return value, nil
}

// ResolveTarget applies the resolver's Naming.
func (r *HeaderResolver) ResolveTarget(req *http.Request, tenantName string) (Target, error) {
	return r.Naming.resolveTarget(req, tenantName)
}

// ResolveCachePrefix applies the resolver's Naming.
func (r *HeaderResolver) ResolveCachePrefix(req *http.Request, tenantName string, target Target) (string, error) {
	return r.Naming.resolveCachePrefix(req, tenantName, target)
}

// PathResolver takes the tenant from a URL path segment: with Position 2,
// "/tenants/acme/settings" resolves to "acme".
type PathResolver struct {
	// Position is the 1-based position in the path (e.g., 2 for /tenants/{id}/...)
	Position int
	Naming   Naming
}

// NewPathResolver creates a new path resolver using DefaultNaming.
func NewPathResolver(position int) *PathResolver {
	return &PathResolver{Position: position, Naming: DefaultNaming}
}

// ResolveTenantName reads the path segment at Position.
func (r *PathResolver) ResolveTenantName(req *http.Request) (string, error) {
	if r.Position < 1 {
		return "", errors.New("invalid path position")
	}

	path := strings.Trim(req.URL.Path, "/")
	if path == "" {
		return "", ErrTenantNotFound
	}

	parts := strings.Split(path, "/")
	if r.Position > len(parts) || parts[r.Position-1] == "" {
		return "", ErrTenantNotFound
	}
	segment := parts[r.Position-1]
	if !tenantToken.MatchString(segment) {
		return "", ErrInvalidIdentifier
	}
	return segment, nil
}

// ResolveTarget applies the resolver's Naming.
func (r *PathResolver) ResolveTarget(req *http.Request, tenantName string) (Target, error) {
	return r.Naming.resolveTarget(req, tenantName)
}

// ResolveCachePrefix applies the resolver's Naming.
func (r *PathResolver) ResolveCachePrefix(req *http.Request, tenantName string, target Target) (string, error) {
	return r.Naming.resolveCachePrefix(req, tenantName, target)
}

// hostname lower-cases host and strips the port.
func hostname(host string) string {
	if idx := strings.LastIndex(host, ":"); idx != -1 && !strings.Contains(host[idx:], "]") {
		host = host[:idx]
	}
	return strings.ToLower(host)
}
