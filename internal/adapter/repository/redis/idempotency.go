package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponsePending marks a key whose first request is still running.
const ResponsePending = "processing"

// ResponseStore caches HTTP responses of idempotent requests. It sits in
// front of the ledger's own idempotency records and only saves a trip to
// the database for warm keys.
type ResponseStore struct {
	client redis.Cmdable
	prefix string
}

// NewResponseStore creates a new ResponseStore.
func NewResponseStore(client redis.Cmdable) *ResponseStore {
	return &ResponseStore{
		client: client,
		prefix: "idempotency:",
	}
}

// CheckAndSet returns the cached response for key if there is one. When
// there is none it reserves the key with a pending marker and reports
// exists=false.
func (s *ResponseStore) CheckAndSet(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	fullKey := s.prefix + key

	set, err := s.client.SetNX(ctx, fullKey, ResponsePending, ttl).Result()
	if err != nil {
		return false, nil, err
	}
	if set {
		return false, nil, nil
	}

	existing, err := s.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between the two calls.
			return false, nil, nil
		}
		return false, nil, err
	}

	return true, existing, nil
}

// Update stores the final response for key.
func (s *ResponseStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, response, ttl).Err()
}

// Release drops a pending reservation so the key can be retried.
func (s *ResponseStore) Release(ctx context.Context, key string) error {
	fullKey := s.prefix + key

	current, err := s.client.Get(ctx, fullKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	if current != ResponsePending {
		return nil
	}

	return s.client.Del(ctx, fullKey).Err()
}
