// Package memory is a process-local store with the same scope semantics as
// the PostgreSQL store: row locks owned by a transaction, conditional writes
// checked against committed versions, and writes that become visible only
// at commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

var (
	errTxDone   = errors.New("transaction already finished")
	errReadOnly = errors.New("cannot write in a read-only transaction")
)

// row is one committed account. lock is held by at most one transaction.
type row struct {
	account *domain.Account
	lock    chan struct{}
}

// Store holds committed state. All mutation goes through Tx.Commit.
type Store struct {
	mu       sync.RWMutex
	accounts map[int64]*row
	entries  []*domain.Entry
	records  map[string]*domain.IdempotencyRecord
	outbox   []*domain.OutboxEvent
	nextID   int64

	txSeq atomic.Uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[int64]*row),
		records:  make(map[string]*domain.IdempotencyRecord),
	}
}

func (s *Store) committed(id int64) (*domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.accounts[id]
	if !ok {
		return nil, false
	}
	return r.account.Clone(), true
}

// TxManager opens memory transactions.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new transaction. Isolation is uniform: reads see committed
// state plus the transaction's own writes.
func (m *TxManager) Begin(ctx context.Context, opts usecase.TxOptions) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		id:      m.store.txSeq.Add(1),
		store:   m.store,
		opts:    opts,
		held:    make(map[int64]*row),
		writes:  make(map[int64]*domain.Account),
		created: make(map[int64]bool),
		records: make(map[string]*domain.IdempotencyRecord),
	}, nil
}

// Tx buffers writes until commit. It is used by one goroutine at a time.
type Tx struct {
	id      uint64
	store   *Store
	opts    usecase.TxOptions
	held    map[int64]*row
	writes  map[int64]*domain.Account
	created map[int64]bool
	entries []*domain.Entry
	records map[string]*domain.IdempotencyRecord
	events  []*domain.OutboxEvent
	done    bool
}

// ID returns the transaction id.
func (tx *Tx) ID() uint64 { return tx.id }

// Commit publishes every buffered write at once and releases row locks.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.done {
		return errTxDone
	}
	tx.done = true
	defer tx.release()

	if err := ctx.Err(); err != nil {
		return err
	}

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range tx.records {
		if _, ok := s.records[key]; ok {
			return fmt.Errorf("idempotency key %q: %w", key, domain.ErrConflict)
		}
	}

	for id, account := range tx.writes {
		if tx.created[id] {
			s.accounts[id] = &row{account: account, lock: make(chan struct{}, 1)}
			continue
		}
		s.accounts[id].account = account
	}
	s.entries = append(s.entries, tx.entries...)
	s.outbox = append(s.outbox, tx.events...)
	for key, record := range tx.records {
		s.records[key] = record
	}

	return nil
}

// Rollback discards buffered writes and releases row locks.
func (tx *Tx) Rollback(_ context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.release()
	return nil
}

func (tx *Tx) release() {
	for id, r := range tx.held {
		<-r.lock
		delete(tx.held, id)
	}
}

// lock acquires the row lock of id for tx, waiting until the holder
// finishes or ctx is done. It is reentrant.
func (tx *Tx) lock(ctx context.Context, id int64) error {
	if _, ok := tx.held[id]; ok || tx.created[id] {
		return nil
	}

	tx.store.mu.RLock()
	r, ok := tx.store.accounts[id]
	tx.store.mu.RUnlock()
	if !ok {
		return domain.ErrAccountNotFound
	}

	select {
	case r.lock <- struct{}{}:
		tx.held[id] = r
		return nil
	case <-ctx.Done():
		return fmt.Errorf("lock account %d: %w", id, ctx.Err())
	}
}

// read returns the transaction's view of id.
func (tx *Tx) read(id int64) (*domain.Account, error) {
	if account, ok := tx.writes[id]; ok {
		return account.Clone(), nil
	}
	account, ok := tx.store.committed(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

func (tx *Tx) writable() error {
	if tx.done {
		return errTxDone
	}
	if tx.opts.ReadOnly {
		return errReadOnly
	}
	return nil
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	mtx, ok := tx.(*Tx)
	if !ok || mtx == nil {
		return nil, fmt.Errorf("memory store: unexpected transaction type %T", tx)
	}
	if mtx.done {
		return nil, errTxDone
	}
	return mtx, nil
}
