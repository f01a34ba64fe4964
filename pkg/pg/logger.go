package pg

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/dmitrymomot/multitenant/pkg/logger"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

// migrationLogger is the part of *slog.Logger used for migration output.
type migrationLogger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// gooseLogger routes goose's Printf-style output to a structured logger,
// tagged with the tenant being migrated.
type gooseLogger struct {
	ctx    context.Context
	log    migrationLogger
	target tenant.Target
}

var _ goose.Logger = (*gooseLogger)(nil)

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.log.ErrorContext(l.ctx, fmt.Sprintf(format, v...), logger.Target(l.target))
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.log.InfoContext(l.ctx, fmt.Sprintf(format, v...), logger.Target(l.target))
}
