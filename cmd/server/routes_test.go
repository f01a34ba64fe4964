package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multitenant/pkg/httpserver"
	"github.com/dmitrymomot/multitenant/pkg/redis"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

type memRedis struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memRedis) Get(_ context.Context, key string) *goredis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(string(v), nil)
}

func (m *memRedis) Set(_ context.Context, key string, value any, _ time.Duration) *goredis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.([]byte)
	return goredis.NewStatusResult("OK", nil)
}

func (m *memRedis) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return goredis.NewIntResult(int64(len(keys)), nil)
}

func (m *memRedis) Scan(_ context.Context, _ uint64, match string, _ int64) *goredis.ScanCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if ok, _ := path.Match(match, k); ok {
			keys = append(keys, k)
		}
	}
	return goredis.NewScanCmdResult(keys, 0, nil)
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	a := &app{
		log:     slog.New(slog.DiscardHandler),
		storage: redis.NewTenantStorage(&memRedis{data: map[string][]byte{}}),
	}
	return a.routes(
		tenant.NewHeaderResolver(""),
		httpserver.HealthCheckHandler(nil, 0),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "metrics") }),
	)
}

func do(t *testing.T, h http.Handler, method, target, tenantName, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if tenantName != "" {
		req.Header.Set("X-Tenant-ID", tenantName)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutesWithoutTenant(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/cache/greeting", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/cache/greeting", "bad tenant!", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheRoutesAreTenantScoped(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPut, "/cache/greeting", "acme", "hello acme")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodPut, "/cache/greeting", "globex", "hello globex")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/cache/greeting", "acme", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello acme", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/cache", "acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct{ Keys []string }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, []string{"greeting"}, listed.Keys)

	rec = do(t, h, http.MethodDelete, "/cache", "acme", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/cache/greeting", "acme", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodGet, "/cache/greeting", "globex", "")
	assert.Equal(t, "hello globex", rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/cache/greeting", "globex", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, "/cache/greeting", "globex", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutValueRejectsBadTTL(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPut, "/cache/k?ttl=soon", "acme", "v")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/cache/k?ttl=30s", "acme", "v")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
