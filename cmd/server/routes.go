package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/multitenant/pkg/logger"
	"github.com/dmitrymomot/multitenant/pkg/redis"
	"github.com/dmitrymomot/multitenant/pkg/requestid"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

const maxValueSize = 1 << 20

type app struct {
	log     *slog.Logger
	store   *store
	storage *redis.TenantStorage
}

func (a *app) routes(resolver tenant.Resolver, health, metrics http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)

	r.Method(http.MethodGet, "/healthz", health)
	r.Method(http.MethodGet, "/metrics", metrics)

	r.Group(func(r chi.Router) {
		r.Use(tenant.Middleware(resolver, tenant.WithLogger(a.log)))

		r.Get("/whoami", a.whoami)
		r.Route("/cache", func(r chi.Router) {
			r.Get("/", a.listKeys)
			r.Delete("/", a.resetCache)
			r.Get("/{key}", a.getValue)
			r.Put("/{key}", a.putValue)
			r.Delete("/{key}", a.deleteValue)
		})
	})
	return r
}

func (a *app) whoami(w http.ResponseWriter, r *http.Request) {
	tc := tenant.MustFromContext(r.Context())
	name, _ := tc.TenantName()
	prefix, _ := tc.CachePrefix()

	current, err := a.store.current(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, r, http.StatusOK, map[string]string{
		"tenant":       name,
		"target":       tc.Target().String(),
		"cache_prefix": prefix,
		"current":      current,
	})
}

func (a *app) listKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := a.storage.Keys(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	a.json(w, r, http.StatusOK, map[string][]string{"keys": keys})
}

func (a *app) resetCache(w http.ResponseWriter, r *http.Request) {
	if err := a.storage.Reset(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) getValue(w http.ResponseWriter, r *http.Request) {
	val, err := a.storage.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if val == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(val)
}

// putValue stores the request body. An optional ttl query parameter such as
// "30s" sets the expiration.
func (a *app) putValue(w http.ResponseWriter, r *http.Request) {
	var ttl time.Duration
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			http.Error(w, "invalid ttl", http.StatusBadRequest)
			return
		}
		ttl = d
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueSize))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	if err := a.storage.Set(r.Context(), chi.URLParam(r, "key"), body, ttl); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) deleteValue(w http.ResponseWriter, r *http.Request) {
	if err := a.storage.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) json(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.ErrorContext(r.Context(), "encode response", logger.Error(err))
	}
}

func (a *app) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, redis.ErrEmptyKey):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, tenant.ErrTenantNotBound):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		a.log.ErrorContext(r.Context(), "request failed", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
