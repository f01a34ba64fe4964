package tenantdb

import (
	"fmt"
	"strings"
)

// Mode selects how a tenant's target is applied to a connection.
type Mode uint8

const (
	// ModeDatabase switches the connection's current database with USE (MySQL).
	ModeDatabase Mode = iota + 1
	// ModeSchema switches the connection's search path (PostgreSQL).
	ModeSchema
)

// ParseMode parses "database" (or "mysql") and "schema" (or "postgres").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "database", "mysql":
		return ModeDatabase, nil
	case "schema", "postgres", "postgresql":
		return ModeSchema, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeDatabase:
		return "database"
	case ModeSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// Statement returns the directive selecting name on a connection.
func (m Mode) Statement(name string) string {
	if m == ModeDatabase {
		return "USE `" + name + "`;"
	}
	return "SET search_path TO " + name
}

const resetSearchPath = "SET search_path TO DEFAULT"
