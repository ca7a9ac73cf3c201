package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ContentionTracker implements usecase.ContentionTracker with one counter
// per account. The counter expires one window after the first conflict, so
// an account stays hot for the rest of the window once it crosses the
// threshold.
type ContentionTracker struct {
	client    redis.Cmdable
	prefix    string
	threshold int64
	window    time.Duration
}

// NewContentionTracker creates a tracker shared by every process using the
// same Redis. A threshold <= 0 disables escalation.
func NewContentionTracker(client redis.Cmdable, threshold int, window time.Duration) *ContentionTracker {
	return &ContentionTracker{
		client:    client,
		prefix:    "contention:",
		threshold: int64(threshold),
		window:    window,
	}
}

func (t *ContentionTracker) key(accountID int64) string {
	return t.prefix + strconv.FormatInt(accountID, 10)
}

// RecordConflict counts one failed conditional write on the account.
func (t *ContentionTracker) RecordConflict(ctx context.Context, accountID int64) error {
	key := t.key(accountID)

	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, t.window)
		return nil
	})
	return err
}

// IsHot reports whether the account reached the threshold in the current window.
func (t *ContentionTracker) IsHot(ctx context.Context, accountID int64) (bool, error) {
	if t.threshold <= 0 {
		return false, nil
	}

	count, err := t.client.Get(ctx, t.key(accountID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	return count >= t.threshold, nil
}
