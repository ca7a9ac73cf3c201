package memory

import (
	"context"
	"sync"
	"time"
)

// ContentionTracker counts conflicts per account in fixed windows. An
// account is hot once it reaches threshold conflicts inside one window.
type ContentionTracker struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	now       func() time.Time
	counters  map[int64]*counter
}

type counter struct {
	count   int
	expires time.Time
}

// NewContentionTracker creates a new ContentionTracker.
func NewContentionTracker(threshold int, window time.Duration) *ContentionTracker {
	return &ContentionTracker{
		threshold: threshold,
		window:    window,
		now:       time.Now,
		counters:  make(map[int64]*counter),
	}
}

// RecordConflict counts one conflict on the account.
func (t *ContentionTracker) RecordConflict(_ context.Context, accountID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	c, ok := t.counters[accountID]
	if !ok || !now.Before(c.expires) {
		c = &counter{expires: now.Add(t.window)}
		t.counters[accountID] = c
	}
	c.count++
	return nil
}

// IsHot reports whether the account reached the threshold in its window.
func (t *ContentionTracker) IsHot(_ context.Context, accountID int64) (bool, error) {
	if t.threshold <= 0 {
		return false, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.counters[accountID]
	if !ok {
		return false, nil
	}
	if !t.now().Before(c.expires) {
		delete(t.counters, accountID)
		return false, nil
	}
	return c.count >= t.threshold, nil
}
