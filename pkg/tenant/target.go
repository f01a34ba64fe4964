package tenant

import "strings"

type targetKind uint8

const (
	targetUnset targetKind = iota
	targetPoolDefault
	targetNamed
)

// Target selects the database (database mode) or search path (schema mode)
// a tenant's statements run against.
//
// The zero value is unset: nothing has been resolved yet. PoolDefault means
// "no override, use whatever the pool connects to". Named carries an explicit
// database name or search-path value. The three states are distinct and are
// never inferred from an empty name.
type Target struct {
	name string
	kind targetKind
}

// Named returns a target selecting the given database or search path.
// Search paths may be comma-separated lists, e.g. "acme,public".
func Named(name string) Target {
	return Target{name: name, kind: targetNamed}
}

// PoolDefault returns the explicit "no override" target.
func PoolDefault() Target {
	return Target{kind: targetPoolDefault}
}

// Name returns the database or search-path value. Empty for unset and pool default targets.
func (t Target) Name() string { return t.name }

// IsSet reports whether the target was resolved, either to a name or to the pool default.
func (t Target) IsSet() bool { return t.kind != targetUnset }

// IsPoolDefault reports whether the target explicitly asks for the pool's default database.
func (t Target) IsPoolDefault() bool { return t.kind == targetPoolDefault }

// IsNamed reports whether the target carries an explicit name.
func (t Target) IsNamed() bool { return t.kind == targetNamed }

// Validate rejects named targets that are empty or contain a statement terminator.
// This is a shallow guard; resolvers are expected to sanitize names themselves.
func (t Target) Validate() error {
	if t.kind != targetNamed {
		return nil
	}
	if t.name == "" || strings.ContainsRune(t.name, ';') {
		return ErrInvalidIdentifier
	}
	return nil
}

func (t Target) String() string {
	switch t.kind {
	case targetNamed:
		return t.name
	case targetPoolDefault:
		return "<pool default>"
	default:
		return "<unset>"
	}
}
