package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multitenant/pkg/logger"
)

type ctxKey struct{}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json by default", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		log.Info("hello")

		entry := decode(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("text format", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithFormat(logger.FormatText))
		log.Info("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { logger.WithFormat("xml") })
	})

	t.Run("level filters records", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithLevel(slog.LevelWarn))
		log.Info("dropped")
		assert.Empty(t, buf.String())
	})

	t.Run("static attributes", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithAttr(slog.String("app", "x")))
		log.Info("hello")
		assert.Equal(t, "x", decode(t, buf)["app"])
	})
}

func TestWithEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("development is text at debug", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithEnvironment("development", "svc"))
		log.Debug("details")
		out := buf.String()
		assert.Contains(t, out, "level=DEBUG")
		assert.Contains(t, out, "service=svc")
		assert.Contains(t, out, "env=development")
	})

	t.Run("production is json at info", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithEnvironment("production", "svc"))
		log.Debug("dropped")
		assert.Empty(t, buf.String())

		log.Info("kept")
		entry := decode(t, buf)
		assert.Equal(t, "production", entry["env"])
		assert.Equal(t, "svc", entry["service"])
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("level and format override environment", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log, err := logger.NewFromConfig(logger.Config{
			Level:   "warn",
			Format:  "json",
			Env:     "development",
			Service: "svc",
		}, logger.WithOutput(buf))
		require.NoError(t, err)

		log.Info("dropped")
		assert.Empty(t, buf.String())
		log.Warn("kept")
		assert.Equal(t, "WARN", decode(t, buf)["level"])
	})

	t.Run("invalid level", func(t *testing.T) {
		t.Parallel()
		_, err := logger.NewFromConfig(logger.Config{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("invalid format", func(t *testing.T) {
		t.Parallel()
		_, err := logger.NewFromConfig(logger.Config{Format: "yaml"})
		assert.Error(t, err)
	})
}

func TestContextExtractors(t *testing.T) {
	t.Parallel()

	extract := func(ctx context.Context) (slog.Attr, bool) {
		if v, ok := ctx.Value(ctxKey{}).(string); ok {
			return logger.Tenant(v), true
		}
		return slog.Attr{}, false
	}

	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf), logger.WithContextExtractors(nil, extract))
	child := log.With("component", "db").WithGroup("g")

	ctx := context.WithValue(context.Background(), ctxKey{}, "acme")
	child.InfoContext(ctx, "query")

	entry := decode(t, buf)
	assert.Equal(t, "db", entry["component"])
	group, ok := entry["g"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "acme", group["tenant"])

	buf.Reset()
	log.InfoContext(context.Background(), "no tenant")
	assert.NotContains(t, decode(t, buf), "tenant")
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
	assert.Equal(t, "error", logger.Error(errors.New("x")).Key)

	assert.True(t, logger.Errors(nil, nil).Equal(slog.Attr{}))
	errs := logger.Errors(nil, errors.New("a"))
	assert.Equal(t, "errors", errs.Key)
	assert.Len(t, errs.Value.Group(), 1)

	assert.True(t, logger.RequestID("").Equal(slog.Attr{}))
	assert.True(t, logger.Tenant("").Equal(slog.Attr{}))
	assert.True(t, logger.Target(nil).Equal(slog.Attr{}))
	assert.Equal(t, "schema:acme", logger.Target(stringer("schema:acme")).Value.String())
	assert.Equal(t, "schema", logger.Mode(stringer("schema")).Value.String())
	assert.Equal(t, "SET search_path TO x", logger.Statement("SET search_path TO x").Value.String())
	assert.InDelta(t, 1.5, logger.Latency(1500*time.Microsecond).Value.Float64(), 1e-9)
	assert.Equal(t, "component", logger.Component("api").Key)
}
