package logger

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records err under the key "error". A nil error yields an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Tenant records the tenant name under the key "tenant".
func Tenant(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("tenant", name)
}

// Target records a database or schema binding under the key "target".
func Target(t fmt.Stringer) slog.Attr {
	if t == nil {
		return slog.Attr{}
	}
	return slog.String("target", t.String())
}

// Mode records the isolation mode under the key "mode".
func Mode(m fmt.Stringer) slog.Attr {
	return slog.String("mode", m.String())
}

// Statement records a SQL statement under the key "statement".
func Statement(sql string) slog.Attr {
	return slog.String("statement", sql)
}

// Latency records d in fractional milliseconds under the key "latency_ms".
func Latency(d time.Duration) slog.Attr {
	return slog.Float64("latency_ms", float64(d.Microseconds())/1000)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
