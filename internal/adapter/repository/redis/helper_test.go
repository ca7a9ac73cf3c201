package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

// newMiniredisClient connects a client to an in-memory server. Both are
// closed when the test ends.
func newMiniredisClient(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func newTestResponseStore(t *testing.T) (*ResponseStore, *miniredis.Miniredis) {
	t.Helper()

	client, mr := newMiniredisClient(t)
	return NewResponseStore(client), mr
}

func newTestContentionTracker(t *testing.T, threshold int, window time.Duration) (*ContentionTracker, *miniredis.Miniredis) {
	t.Helper()

	client, mr := newMiniredisClient(t)
	return NewContentionTracker(client, threshold, window), mr
}
