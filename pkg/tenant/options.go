package tenant

import (
	"errors"
	"log/slog"
	"net/http"
)

// ErrorHandler handles errors that occur during tenant binding.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// AfterBindHook runs once the tenant is bound and before the request is served.
// Use it to invalidate caches that are not tenant-aware. A returned error
// aborts the request.
type AfterBindHook func(r *http.Request, tc *Context) error

// config holds middleware configuration.
type config struct {
	errorHandler ErrorHandler
	skipPaths    []string
	afterBind    []AfterBindHook
	logger       *slog.Logger
}

// Option configures the middleware.
type Option func(*config)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *config) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths sets paths that should skip tenant resolution.
func WithSkipPaths(paths []string) Option {
	return func(c *config) {
		c.skipPaths = paths
	}
}

// WithAfterBind registers hooks that run after the tenant is bound.
func WithAfterBind(hooks ...AfterBindHook) Option {
	return func(c *config) {
		for _, h := range hooks {
			if h != nil {
				c.afterBind = append(c.afterBind, h)
			}
		}
	}
}

// WithLogger sets a custom logger for the middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTenantNotFound):
		http.Error(w, "Tenant not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidIdentifier):
		http.Error(w, "Invalid tenant identifier", http.StatusBadRequest)
	case errors.Is(err, ErrTenantNotBound):
		http.Error(w, "Tenant required", http.StatusForbidden)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
