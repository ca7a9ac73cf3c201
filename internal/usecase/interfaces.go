package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// AccountRepository defines data access for accounts. Every method runs
// inside the scope tx belongs to.
type AccountRepository interface {
	// Create inserts the account and assigns its ID.
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	// GetByID is the optimistic read: no row lock is taken.
	GetByID(ctx context.Context, tx Transaction, id int64) (*domain.Account, error)
	// GetByIDForUpdate is the pessimistic read: the row stays locked by tx
	// until it commits or rolls back.
	GetByIDForUpdate(ctx context.Context, tx Transaction, id int64) (*domain.Account, error)
	// CompareAndSwap writes balance, status and hot flag only if the stored
	// version still equals expectedVersion, and bumps the version by one.
	// A stale version returns a *domain.ConflictError. On success
	// account.Version holds the new version.
	CompareAndSwap(ctx context.Context, tx Transaction, account *domain.Account, expectedVersion int64) error
	List(ctx context.Context, tx Transaction, limit, offset int) ([]*domain.Account, error)
}

// EntryRepository defines data access for entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	ListByAccount(ctx context.Context, tx Transaction, accountID int64, limit, offset int) ([]*domain.Entry, error)
	ListByOperation(ctx context.Context, tx Transaction, operationID string) ([]*domain.Entry, error)
	SumByAccount(ctx context.Context, tx Transaction, accountID int64) (credits, debits decimal.Decimal, err error)
}

// IdempotencyRepository stores operation idempotency records.
type IdempotencyRepository interface {
	// Get returns nil, nil when the key is unknown.
	Get(ctx context.Context, tx Transaction, key string) (*domain.IdempotencyRecord, error)
	// Create fails with domain.ErrConflict if another scope stored the key first.
	Create(ctx context.Context, tx Transaction, record *domain.IdempotencyRecord) error
}

// LedgerTotals are ledger-wide sums used by the consistency check.
type LedgerTotals struct {
	Balances decimal.Decimal
	Credits  decimal.Decimal
	Debits   decimal.Decimal
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	Totals(ctx context.Context, tx Transaction) (LedgerTotals, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents one open scope in the store.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager opens scopes at the requested isolation.
type TransactionManager interface {
	Begin(ctx context.Context, opts TxOptions) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ContentionTracker counts conflicts per account and reports accounts that
// should take the pessimistic path.
type ContentionTracker interface {
	RecordConflict(ctx context.Context, accountID int64) error
	IsHot(ctx context.Context, accountID int64) (bool, error)
}

// MetricsRecorder receives operation telemetry.
type MetricsRecorder interface {
	ObserveOperation(operation string, outcome domain.Outcome, duration time.Duration)
	IncConflict(operation string)
	IncRetry(operation string)
	IncPessimisticLock()
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, domain.Outcome, time.Duration) {}
func (noopMetrics) IncConflict(string)                                      {}
func (noopMetrics) IncRetry(string)                                         {}
func (noopMetrics) IncPessimisticLock()                                     {}

type noopTracker struct{}

func (noopTracker) RecordConflict(context.Context, int64) error { return nil }
func (noopTracker) IsHot(context.Context, int64) (bool, error)  { return false, nil }
