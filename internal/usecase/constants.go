package usecase

import "time"

const (
	// DefaultWriteTimeout bounds account and single-account balance scopes.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultTransferTimeout bounds transfer scopes.
	DefaultTransferTimeout = 60 * time.Second

	// DefaultReadTimeout bounds read-only scopes.
	DefaultReadTimeout = 5 * time.Second

	// DefaultMaxRetries is how many times a conflicted idempotent operation
	// is re-run after the first attempt.
	DefaultMaxRetries = 3

	// DefaultRetryInitialInterval is the first backoff delay; it doubles on
	// every retry.
	DefaultRetryInitialInterval = 100 * time.Millisecond

	// IdempotencyKeyTTL is how long HTTP idempotency responses are cached.
	IdempotencyKeyTTL = 24 * time.Hour
)

// Operation names used in logs, metrics and idempotency records.
const (
	OperationDebit    = "debit"
	OperationCredit   = "credit"
	OperationTransfer = "transfer"
)
