package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/adapter/repository/memory"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// seqIDGen hands out predictable ids.
type seqIDGen struct {
	n atomic.Uint64
}

func (g *seqIDGen) Generate() string {
	return fmt.Sprintf("id-%06d", g.n.Add(1))
}

// instantTimer fires immediately and records the delays it was asked for.
// It serves one retry loop at a time.
type instantTimer struct {
	mu     sync.Mutex
	delays []time.Duration
	c      chan time.Time
}

func (t *instantTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.delays = append(t.delays, d)
	t.mu.Unlock()
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

func (t *instantTimer) Delays() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.delays...)
}

// recordingAccounts remembers the order of conditional writes and locks.
type recordingAccounts struct {
	*memory.AccountRepository

	mu     sync.Mutex
	writes []int64
	locks  []int64
}

func (r *recordingAccounts) CompareAndSwap(ctx context.Context, tx usecase.Transaction, account *domain.Account, expected int64) error {
	r.mu.Lock()
	r.writes = append(r.writes, account.ID)
	r.mu.Unlock()
	return r.AccountRepository.CompareAndSwap(ctx, tx, account, expected)
}

func (r *recordingAccounts) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id int64) (*domain.Account, error) {
	r.mu.Lock()
	r.locks = append(r.locks, id)
	r.mu.Unlock()
	return r.AccountRepository.GetByIDForUpdate(ctx, tx, id)
}

type ledger struct {
	store       *memory.Store
	accounts    *recordingAccounts
	entries     *memory.EntryRepository
	outbox      *memory.OutboxRepository
	tracker     *memory.ContentionTracker
	controller  *usecase.Controller
	coordinator *usecase.Coordinator
	accountUC   *usecase.AccountUseCase

	mu          sync.Mutex
	transitions []usecase.ScopeState
}

type ledgerOption func(*usecase.ControllerConfig)

func newLedger(t *testing.T, opts ...ledgerOption) *ledger {
	t.Helper()

	store := memory.NewStore()
	l := &ledger{
		store:    store,
		accounts: &recordingAccounts{AccountRepository: memory.NewAccountRepository(store)},
		entries:  memory.NewEntryRepository(store),
		outbox:   memory.NewOutboxRepository(store),
		tracker:  memory.NewContentionTracker(1000, time.Minute),
	}

	idGen := &seqIDGen{}
	cfg := usecase.ControllerConfig{
		TxManager:   memory.NewTxManager(store),
		Accounts:    l.accounts,
		Entries:     l.entries,
		Idempotency: memory.NewIdempotencyRepository(store),
		Outbox:      l.outbox,
		IDGen:       idGen,
		Tracker:     l.tracker,
		Selector:    usecase.NewIsolationSelector(false),
		Timeouts:    usecase.DefaultTimeouts(),
		Observer: func(_ uint64, _, to usecase.ScopeState) {
			l.mu.Lock()
			l.transitions = append(l.transitions, to)
			l.mu.Unlock()
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	l.controller = usecase.NewController(cfg)
	retry := usecase.NewRetryPolicy(usecase.DefaultMaxRetries, time.Millisecond)
	l.coordinator = usecase.NewCoordinator(l.controller, retry, nil)
	l.accountUC = usecase.NewAccountUseCase(l.controller, l.accounts, l.outbox, idGen)
	return l
}

// open creates an account and funds it through a credit.
func (l *ledger) open(t *testing.T, balance string) *domain.Account {
	t.Helper()
	ctx := context.Background()

	account, err := l.accountUC.CreateAccount(ctx, usecase.CreateAccountInput{Name: "acc", Currency: "USD"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	amount := decimal.RequireFromString(balance)
	if amount.IsPositive() {
		if _, err := l.coordinator.Credit(ctx, usecase.CreditInput{AccountID: account.ID, Amount: amount}); err != nil {
			t.Fatalf("fund account: %v", err)
		}
	}
	return l.get(t, account.ID)
}

func (l *ledger) get(t *testing.T, id int64) *domain.Account {
	t.Helper()
	account, err := l.accountUC.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %d: %v", id, err)
	}
	return account
}

func (l *ledger) resetRecording() {
	l.accounts.mu.Lock()
	l.accounts.writes = nil
	l.accounts.locks = nil
	l.accounts.mu.Unlock()

	l.mu.Lock()
	l.transitions = nil
	l.mu.Unlock()
}

func (l *ledger) scopeTransitions() []usecase.ScopeState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]usecase.ScopeState(nil), l.transitions...)
}

// holdRowLock locks the account from a scope outside the controller until
// the returned func is called.
func holdRowLock(t *testing.T, store *memory.Store, id int64) func() {
	t.Helper()
	ctx := context.Background()

	tx, err := memory.NewTxManager(store).Begin(ctx, usecase.TxOptions{Isolation: usecase.RepeatableRead})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := memory.NewAccountRepository(store).GetByIDForUpdate(ctx, tx, id); err != nil {
		t.Fatalf("lock %d: %v", id, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() { _ = tx.Rollback(ctx) })
	}
}

func memoryLedger(l *ledger) usecase.LedgerRepository {
	return memory.NewLedgerRepository(l.store)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
