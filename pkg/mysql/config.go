package mysql

import "time"

// Config holds MySQL pool settings.
type Config struct {
	DSN             string        `env:"MYSQL_DSN,required"`                        // DSN is a go-sql-driver DSN, e.g. "app:secret@tcp(localhost:3306)/app".
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"10"`      // MaxOpenConns is the pool size shared by all tenants.
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"5"`       // MaxIdleConns is the number of connections kept open when idle.
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"30m"`  // ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxIdleTime time.Duration `env:"MYSQL_CONN_MAX_IDLE_TIME" envDefault:"10m"` // ConnMaxIdleTime is the maximum amount of time a connection may be idle.

	RetryAttempts int           `env:"MYSQL_RETRY_ATTEMPTS" envDefault:"3"`  // RetryAttempts is the number of attempts to connect to the database.
	RetryInterval time.Duration `env:"MYSQL_RETRY_INTERVAL" envDefault:"5s"` // RetryInterval is multiplied by the attempt number between attempts.
}
