package tenantdb

import "errors"

var (
	// ErrStatementFailed is returned when the backend rejects a USE or SET
	// search_path directive. It is joined with the backend error.
	ErrStatementFailed = errors.New("tenant directive failed")

	// ErrDefaultUnavailable is returned in database mode when the pool default
	// is requested on a connection already switched to another database and no
	// default database name was configured.
	ErrDefaultUnavailable = errors.New("pool default database is not known")

	// ErrNamedCursorUnsupported is returned by bindings that have no server-side cursors.
	ErrNamedCursorUnsupported = errors.New("named cursors are not supported by this connection")

	// ErrUnknownMode is returned when parsing an unrecognized mode name.
	ErrUnknownMode = errors.New("unknown tenant mode")
)
