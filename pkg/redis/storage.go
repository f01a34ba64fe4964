package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

// Commands is the part of a Redis client used by TenantStorage.
// redis.UniversalClient satisfies it.
type Commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// TenantStorage is a key-value store whose keys are namespaced under the
// cache prefix of the tenant bound to each call's context. Keys are stored
// as "<cache_prefix>:<key_prefix>:<version>:<key>".
// Every operation fails with tenant.ErrTenantNotBound when no tenant is bound.
type TenantStorage struct {
	db            Commands
	keyFunc       tenant.KeyFunc
	keyPrefix     string
	version       int
	scanBatchSize int64
}

// StorageOption configures a TenantStorage.
type StorageOption func(*TenantStorage)

// WithKeyFunc replaces tenant.CacheKey as the key builder.
func WithKeyFunc(fn tenant.KeyFunc) StorageOption {
	return func(s *TenantStorage) {
		if fn != nil {
			s.keyFunc = fn
		}
	}
}

// WithKeyPrefix sets the key prefix segment.
func WithKeyPrefix(prefix string) StorageOption {
	return func(s *TenantStorage) { s.keyPrefix = prefix }
}

// WithKeyVersion sets the version segment.
func WithKeyVersion(version int) StorageOption {
	return func(s *TenantStorage) { s.version = version }
}

// WithScanBatchSize sets the COUNT hint used by Keys and Reset.
func WithScanBatchSize(n int) StorageOption {
	return func(s *TenantStorage) {
		if n > 0 {
			s.scanBatchSize = int64(n)
		}
	}
}

// NewTenantStorage creates a tenant-scoped storage over client.
func NewTenantStorage(client Commands, opts ...StorageOption) *TenantStorage {
	s := &TenantStorage{
		db:            client,
		keyFunc:       tenant.CacheKey,
		keyPrefix:     "cache",
		version:       1,
		scanBatchSize: 1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTenantStorageWithConfig creates a tenant-scoped storage using cfg's key settings.
func NewTenantStorageWithConfig(client Commands, cfg Config, opts ...StorageOption) *TenantStorage {
	base := []StorageOption{
		WithKeyPrefix(cfg.KeyPrefix),
		WithKeyVersion(cfg.KeyVersion),
		WithScanBatchSize(cfg.ScanBatchSize),
	}
	return NewTenantStorage(client, append(base, opts...)...)
}

// Key returns the namespaced Redis key for key.
func (s *TenantStorage) Key(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	return s.keyFunc(ctx, key, s.keyPrefix, s.version)
}

// Get returns nil for missing values.
func (s *TenantStorage) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := s.Key(ctx, key)
	if err != nil {
		return nil, err
	}
	val, err := s.db.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

// Set stores val under key. Zero exp means no expiration.
func (s *TenantStorage) Set(ctx context.Context, key string, val []byte, exp time.Duration) error {
	k, err := s.Key(ctx, key)
	if err != nil {
		return err
	}
	return s.db.Set(ctx, k, val, exp).Err()
}

// Delete removes key.
func (s *TenantStorage) Delete(ctx context.Context, key string) error {
	k, err := s.Key(ctx, key)
	if err != nil {
		return err
	}
	return s.db.Del(ctx, k).Err()
}

// Keys returns the bound tenant's keys without their namespace, using SCAN
// so Redis is never blocked.
func (s *TenantStorage) Keys(ctx context.Context) ([]string, error) {
	ns, err := s.namespace(ctx)
	if err != nil {
		return nil, err
	}
	var keys []string
	err = s.scan(ctx, ns, func(batch []string) error {
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, ns))
		}
		return nil
	})
	return keys, err
}

// Reset deletes every key of the bound tenant and nothing else.
func (s *TenantStorage) Reset(ctx context.Context) error {
	ns, err := s.namespace(ctx)
	if err != nil {
		return err
	}
	return s.scan(ctx, ns, func(batch []string) error {
		if len(batch) == 0 {
			return nil
		}
		return s.db.Del(ctx, batch...).Err()
	})
}

// namespace is the key with an empty key segment: the common prefix of all
// keys of the bound tenant under this storage's key prefix and version.
func (s *TenantStorage) namespace(ctx context.Context) (string, error) {
	return s.keyFunc(ctx, "", s.keyPrefix, s.version)
}

func (s *TenantStorage) scan(ctx context.Context, ns string, fn func(batch []string) error) error {
	match := escapeGlob(ns) + "*"
	var cursor uint64
	for {
		batch, next, err := s.db.Scan(ctx, cursor, match, s.scanBatchSize).Result()
		if err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
