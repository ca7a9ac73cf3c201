package testutil

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	httpAdapter "github.com/iho/bankledger/internal/adapter/http"
	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/bankledger/internal/adapter/repository/postgres"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/postgres"
	"github.com/iho/bankledger/internal/usecase"
)

// TestDB provides isolated test database connections.
type TestDB struct {
	Pool *pgxpool.Pool
	URL  string
	t    *testing.T
}

// NewTestDB connects to DATABASE_URL and applies the migrations. The test is
// skipped when DATABASE_URL is not set.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	if err := postgres.RunMigrations(dbURL, zerolog.Nop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dbURL, 20, 2)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	return &TestDB{
		Pool: pool,
		URL:  dbURL,
		t:    t,
	}
}

// Cleanup closes the database connection.
func (db *TestDB) Cleanup() {
	db.Pool.Close()
}

// TruncateAll removes all data from tables.
func (db *TestDB) TruncateAll(ctx context.Context) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		TRUNCATE TABLE entries, idempotency_keys, outbox_events, accounts RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		db.t.Fatalf("failed to truncate tables: %v", err)
	}
}

// Ledger is the full core wired on postgres.
type Ledger struct {
	Controller     *usecase.Controller
	Coordinator    *usecase.Coordinator
	Accounts       *usecase.AccountUseCase
	Entries        *usecase.EntryUseCase
	Ledger         *usecase.LedgerUseCase
	Reconciliation *usecase.ReconciliationUseCase
	Outbox         *postgresRepo.OutboxRepository
	Tracker        *memory.ContentionTracker

	t *testing.T
}

// LedgerOption adjusts the controller before it is built.
type LedgerOption func(*usecase.ControllerConfig)

// WithHotThreshold replaces the contention tracker with one that marks an
// account hot after threshold conflicts.
func WithHotThreshold(threshold int) LedgerOption {
	return func(cfg *usecase.ControllerConfig) {
		cfg.Tracker = memory.NewContentionTracker(threshold, time.Minute)
	}
}

// WithSerializableTransfers runs transfers at SERIALIZABLE.
func WithSerializableTransfers() LedgerOption {
	return func(cfg *usecase.ControllerConfig) {
		cfg.Selector = usecase.NewIsolationSelector(true)
	}
}

// NewLedger builds the core on db.
func (db *TestDB) NewLedger(opts ...LedgerOption) *Ledger {
	db.t.Helper()

	accountRepo := postgresRepo.NewAccountRepository()
	entryRepo := postgresRepo.NewEntryRepository()
	outboxRepo := postgresRepo.NewOutboxRepository(db.Pool)
	idGen := postgresRepo.NewULIDGenerator()

	cfg := usecase.ControllerConfig{
		TxManager:   postgresRepo.NewTxManager(db.Pool),
		Accounts:    accountRepo,
		Entries:     entryRepo,
		Idempotency: postgresRepo.NewIdempotencyRepository(),
		Outbox:      outboxRepo,
		IDGen:       idGen,
		Tracker:     memory.NewContentionTracker(1000, time.Minute),
		Selector:    usecase.NewIsolationSelector(false),
		Timeouts:    usecase.DefaultTimeouts(),
		Logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	controller := usecase.NewController(cfg)
	retry := usecase.NewRetryPolicy(usecase.DefaultMaxRetries, 10*time.Millisecond)

	tracker, _ := cfg.Tracker.(*memory.ContentionTracker)
	return &Ledger{
		Controller:     controller,
		Coordinator:    usecase.NewCoordinator(controller, retry, nil),
		Accounts:       usecase.NewAccountUseCase(controller, accountRepo, outboxRepo, idGen),
		Entries:        usecase.NewEntryUseCase(controller, entryRepo),
		Ledger:         usecase.NewLedgerUseCase(controller, postgresRepo.NewLedgerRepository()),
		Reconciliation: usecase.NewReconciliationUseCase(controller, accountRepo, entryRepo),
		Outbox:         outboxRepo,
		Tracker:        tracker,
		t:              db.t,
	}
}

// CreateAccount opens an account and funds it with balance through a credit.
func (l *Ledger) CreateAccount(ctx context.Context, name string, balance decimal.Decimal) *domain.Account {
	l.t.Helper()

	account, err := l.Accounts.CreateAccount(ctx, usecase.CreateAccountInput{Name: name, Currency: "USD"})
	if err != nil {
		l.t.Fatalf("failed to create test account: %v", err)
	}

	if balance.IsPositive() {
		if _, err := l.Coordinator.Credit(ctx, usecase.CreditInput{AccountID: account.ID, Amount: balance}); err != nil {
			l.t.Fatalf("failed to fund test account: %v", err)
		}
	}

	return l.Account(ctx, account.ID)
}

// Account reloads an account.
func (l *Ledger) Account(ctx context.Context, id int64) *domain.Account {
	l.t.Helper()

	account, err := l.Accounts.GetAccount(ctx, id)
	if err != nil {
		l.t.Fatalf("failed to get account %d: %v", id, err)
	}
	return account
}

// AssertConsistent fails the test when the ledger-wide check fails.
func (l *Ledger) AssertConsistent(ctx context.Context) *usecase.ConsistencyReport {
	l.t.Helper()

	report, err := l.Ledger.CheckConsistency(ctx)
	if err != nil {
		l.t.Fatalf("ledger inconsistent: %v (report %+v)", err, report)
	}
	return report
}

// Amount parses a decimal literal.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Router serves the ledger over HTTP. cache may be nil.
func (l *Ledger) Router(cache middleware.ResponseCache) http.Handler {
	return httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:  handler.NewAccountHandler(l.Accounts),
		TransferHandler: handler.NewTransferHandler(l.Coordinator),
		EntryHandler:    handler.NewEntryHandler(l.Entries),
		LedgerHandler:   handler.NewLedgerHandler(l.Ledger, l.Reconciliation),
		HealthHandler:   handler.NewHealthHandler(nil),
		Logger:          zerolog.Nop(),
		ResponseCache:   cache,
		IdempotencyTTL:  time.Hour,
	})
}
