package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage is a string key-value store on Redis with a key prefix and an
// optional TTL refreshed on every write. It backs the checkout session cache.
type Storage struct {
	db     redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// StorageOption configures a Storage.
type StorageOption func(*Storage)

// WithPrefix namespaces every key.
func WithPrefix(prefix string) StorageOption {
	return func(s *Storage) { s.prefix = prefix }
}

// WithTTL expires written keys after ttl. Zero means no expiration.
func WithTTL(ttl time.Duration) StorageOption {
	return func(s *Storage) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewStorage wraps a go-redis client. Panics on a nil client.
func NewStorage(client redis.UniversalClient, opts ...StorageOption) *Storage {
	if client == nil {
		panic("redis: client is required")
	}
	s := &Storage{db: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetMany returns the values of the keys that exist.
func (s *Storage) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := s.db.MGet(ctx, s.keys(keys)...).Result()
	if err != nil {
		return nil, errors.Join(ErrStorageFailed, err)
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[keys[i]] = str
		}
	}
	return out, nil
}

// SetMany writes all values in one MULTI/EXEC transaction.
func (s *Storage) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	_, err := s.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, s.prefix+k, v, s.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Join(ErrStorageFailed, err)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.db.Del(ctx, s.keys(keys)...).Err(); err != nil {
		return errors.Join(ErrStorageFailed, err)
	}
	return nil
}

func (s *Storage) keys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s.prefix + k
	}
	return out
}
