package mysql

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrFailedToParseDSN         = errors.New("failed to parse mysql dsn")
	ErrFailedToOpenDBConnection = errors.New("failed to open db connection")
	ErrHealthcheckFailed        = errors.New("healthcheck failed, connection is not available")
	ErrDatabaseModeRequired     = errors.New("mysql requires a database mode adapter")
)

// IsUnknownDatabaseError detects USE of a database that does not exist (error 1049).
func IsUnknownDatabaseError(err error) bool {
	return hasNumber(err, 1049)
}

// IsDuplicateKeyError detects unique key violations (error 1062).
func IsDuplicateKeyError(err error) bool {
	return hasNumber(err, 1062)
}

// IsAccessDeniedError detects a user lacking rights on the tenant database (errors 1044 and 1045).
func IsAccessDeniedError(err error) bool {
	return hasNumber(err, 1044) || hasNumber(err, 1045)
}

func hasNumber(err error, number uint16) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == number
}
