package redis

import "time"

// Config holds Redis connection and tenant storage settings.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"` // ConnectionURL is the URL of the database. It should be in the format "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`                      // RetryAttempts is the number of attempts to connect to the database.
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`                     // RetryInterval is the delay between attempts.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`                   // ConnectTimeout bounds the whole connect loop.

	ScanBatchSize int    `env:"REDIS_SCAN_BATCH_SIZE" envDefault:"1000"`         // ScanBatchSize is the COUNT hint for SCAN.
	KeyPrefix     string `env:"REDIS_KEY_PREFIX" envDefault:"cache"`             // KeyPrefix is the key prefix segment of tenant cache keys.
	KeyVersion    int    `env:"REDIS_KEY_VERSION" envDefault:"1"`                // KeyVersion is bumped to invalidate every tenant's cache at once.
	HostKeyPrefix string `env:"REDIS_HOST_KEY_PREFIX" envDefault:"tenant-host:"` // HostKeyPrefix namespaces hostname to tenant mappings.
}
