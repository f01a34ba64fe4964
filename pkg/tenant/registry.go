package tenant

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// Config selects and tunes the process-wide resolver.
type Config struct {
	Resolver       string        `env:"TENANT_RESOLVER" envDefault:"subdomain"`
	HostSuffix     string        `env:"TENANT_HOST_SUFFIX"`
	HeaderName     string        `env:"TENANT_HEADER" envDefault:"X-Tenant-ID"`
	TargetPrefix   string        `env:"TENANT_TARGET_PREFIX" envDefault:"tenant-"`
	CacheNamespace string        `env:"TENANT_CACHE_NAMESPACE" envDefault:"tenant-"`
	UsePoolDefault bool          `env:"TENANT_USE_POOL_DEFAULT" envDefault:"false"`
	PathPosition   int           `env:"TENANT_PATH_POSITION" envDefault:"1"`
	SharedSchemas  []string      `env:"TENANT_SHARED_SCHEMAS" envSeparator:","`
	LookupTTL      time.Duration `env:"TENANT_LOOKUP_TTL" envDefault:"5m"`
}

// Naming returns the Naming described by the config.
func (c Config) Naming() Naming {
	return Naming{
		TargetPrefix:   c.TargetPrefix,
		CachePrefix:    c.CacheNamespace,
		UsePoolDefault: c.UsePoolDefault,
	}
}

// Factory builds a resolver from config.
type Factory func(cfg Config) (Resolver, error)

// Registry maps resolver names to factories. The configured resolver is built
// on first use and the same instance is returned for the life of the process.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory

	once     sync.Once
	resolver Resolver
	err      error
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for name.
// Panics on an empty name or a nil factory.
func (r *Registry) Register(name string, f Factory) {
	if name == "" || f == nil {
		panic("tenant: Register requires a name and a factory")
	}
	r.mu.Lock()
	r.factories[name] = f
	r.mu.Unlock()
}

// Names returns the registered resolver names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Resolver returns the resolver named by cfg.Resolver. Only the first call
// builds; later calls return the cached resolver or error whatever cfg they pass.
func (r *Registry) Resolver(cfg Config) (Resolver, error) {
	r.once.Do(func() {
		r.resolver, r.err = r.build(cfg)
	})
	return r.resolver, r.err
}

func (r *Registry) build(cfg Config) (Resolver, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Resolver]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownResolver, cfg.Resolver, r.Names())
	}
	res, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("build %q resolver: %w", cfg.Resolver, err)
	}
	return res, nil
}

// DefaultRegistry has the subdomain, schema, header and path resolvers registered.
var DefaultRegistry = NewDefaultRegistry()

// NewDefaultRegistry returns a fresh registry with the built-in resolvers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("subdomain", func(cfg Config) (Resolver, error) {
		return &SubdomainResolver{Suffix: cfg.HostSuffix, Naming: cfg.Naming()}, nil
	})
	r.Register("schema", func(cfg Config) (Resolver, error) {
		return &SchemaResolver{SharedSchemas: cfg.SharedSchemas, CachePrefix: cfg.CacheNamespace}, nil
	})
	r.Register("header", func(cfg Config) (Resolver, error) {
		res := NewHeaderResolver(cfg.HeaderName)
		res.Naming = cfg.Naming()
		return res, nil
	})
	r.Register("path", func(cfg Config) (Resolver, error) {
		if cfg.PathPosition < 1 {
			return nil, fmt.Errorf("path position must be at least 1, got %d", cfg.PathPosition)
		}
		return &PathResolver{Position: cfg.PathPosition, Naming: cfg.Naming()}, nil
	})
	return r
}
