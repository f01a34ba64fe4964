package tenantdb

import "github.com/dmitrymomot/multitenant/pkg/tenant"

// State is the tenant state applied to one physical connection.
// It lives as long as the connection and is only touched by the goroutine
// that currently holds the connection, so it carries no lock.
type State struct {
	target tenant.Target
	stale  bool
}

// Applied returns the last target applied to the connection.
// ok is false for a connection that never had a directive issued.
func (s *State) Applied() (tenant.Target, bool) {
	return s.target, s.target.IsSet()
}

// Matches reports whether issuing a directive for t can be skipped.
// A pristine connection already runs on the pool default.
func (s *State) Matches(t tenant.Target) bool {
	if !s.target.IsSet() {
		return t.IsPoolDefault()
	}
	return !s.stale && s.target == t
}

// Stale reports whether the applied target may have been reverted.
func (s *State) Stale() bool { return s.stale }

// MarkStale forces the next acquisition to re-issue the directive.
func (s *State) MarkStale() {
	s.stale = true
}

// Invalidate forgets everything about the connection.
func (s *State) Invalidate() {
	*s = State{}
}

func (s *State) set(t tenant.Target) {
	s.target = t
	s.stale = false
}
