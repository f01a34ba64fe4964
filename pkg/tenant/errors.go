package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when a request does not map to any known tenant.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidIdentifier is returned when a tenant name, target or cache prefix
	// contains disallowed characters.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrTenantNotBound is returned when a database target or cache prefix is
	// requested before the tenant context was populated.
	ErrTenantNotBound = errors.New("tenant not bound")

	// ErrResolution wraps any failure of a Resolver while binding a request.
	ErrResolution = errors.New("tenant resolution failed")

	// ErrUnknownResolver is returned when the configured resolver name has no registered factory.
	ErrUnknownResolver = errors.New("unknown tenant resolver")
)
