package tenant

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/multitenant/pkg/logger"
)

// Middleware binds the request's tenant before the next handler runs and
// unbinds it when the handler returns, whatever the outcome.
//
// Binding fails closed: if any resolver step fails, or returns an empty tenant
// name or an unset target, the error handler responds and next is never called.
func Middleware(resolver Resolver, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		errorHandler: defaultErrorHandler,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			tc := NewContext()
			// Unconditional unbind, also on panics in next. Anything still holding
			// the context afterwards sees an unbound tenant rather than a stale one.
			defer tc.Reset()

			if err := Bind(r, resolver, tc); err != nil {
				cfg.logger.WarnContext(r.Context(), "tenant binding failed",
					slog.String("host", r.Host),
					logger.Error(err),
				)
				cfg.errorHandler(w, r, err)
				return
			}

			for _, hook := range cfg.afterBind {
				if err := hook(r, tc); err != nil {
					cfg.logger.ErrorContext(r.Context(), "tenant after-bind hook failed", logger.Error(err))
					cfg.errorHandler(w, r, err)
					return
				}
			}

			ctx := WithContext(r.Context(), tc)
			cfg.logger.DebugContext(ctx, "tenant bound", logger.Target(tc.Target()))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Bind runs the resolver against r and sets the result on tc.
// Resolver failures are wrapped with ErrResolution.
func Bind(r *http.Request, resolver Resolver, tc *Context) error {
	name, err := resolver.ResolveTenantName(r)
	if err != nil {
		return errors.Join(ErrResolution, err)
	}
	if name == "" {
		return errors.Join(ErrResolution, ErrTenantNotFound)
	}

	target, err := resolver.ResolveTarget(r, name)
	if err != nil {
		return errors.Join(ErrResolution, err)
	}
	if !target.IsSet() {
		return errors.Join(ErrResolution, errors.New("resolver returned an unset target"))
	}

	prefix, err := resolver.ResolveCachePrefix(r, name, target)
	if err != nil {
		return errors.Join(ErrResolution, err)
	}

	return tc.Set(name, target, prefix)
}

// RequireTenant creates middleware that ensures a tenant is bound in the context.
// This is useful for protecting routes mounted outside Middleware's scope.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := FromContext(r.Context())
			if !ok || !tc.Bound() {
				errorHandler(w, r, ErrTenantNotBound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
