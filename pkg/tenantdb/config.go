package tenantdb

import (
	"fmt"

	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

// Config holds adapter settings.
type Config struct {
	Mode          string `env:"TENANT_MODE" envDefault:"schema"`
	DefaultTarget string `env:"TENANT_DEFAULT_TARGET"`
}

// NewFromConfig creates an adapter from cfg. Extra options are applied after
// the ones derived from cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Adapter, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if cfg.DefaultTarget != "" {
		if err := tenant.Named(cfg.DefaultTarget).Validate(); err != nil {
			return nil, fmt.Errorf("default target %q: %w", cfg.DefaultTarget, err)
		}
		opts = append([]Option{WithDefaultTarget(cfg.DefaultTarget)}, opts...)
	}
	return New(mode, opts...), nil
}
