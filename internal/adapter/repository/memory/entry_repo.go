package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	store *Store
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(store *Store) *EntryRepository {
	return &EntryRepository{store: store}
}

// Create appends the entry to tx.
func (r *EntryRepository) Create(_ context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := mtx.writable(); err != nil {
		return err
	}
	e := *entry
	mtx.entries = append(mtx.entries, &e)
	return nil
}

// visible returns committed entries followed by the ones tx wrote.
func (r *EntryRepository) visible(mtx *Tx, keep func(*domain.Entry) bool) []*domain.Entry {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.Entry
	for _, all := range [][]*domain.Entry{r.store.entries, mtx.entries} {
		for _, e := range all {
			if keep(e) {
				c := *e
				out = append(out, &c)
			}
		}
	}
	return out
}

// ListByAccount lists entries for an account, newest first.
func (r *EntryRepository) ListByAccount(_ context.Context, tx usecase.Transaction, accountID int64, limit, offset int) ([]*domain.Entry, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	entries := r.visible(mtx, func(e *domain.Entry) bool { return e.AccountID == accountID })
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	if offset >= len(entries) {
		return []*domain.Entry{}, nil
	}
	return entries[offset:min(offset+limit, len(entries))], nil
}

// ListByOperation lists the entries of one operation in write order.
func (r *EntryRepository) ListByOperation(_ context.Context, tx usecase.Transaction, operationID string) ([]*domain.Entry, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	return r.visible(mtx, func(e *domain.Entry) bool { return e.OperationID == operationID }), nil
}

// SumByAccount returns the credit and debit totals of an account.
func (r *EntryRepository) SumByAccount(_ context.Context, tx usecase.Transaction, accountID int64) (decimal.Decimal, decimal.Decimal, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	credits, debits := decimal.Zero, decimal.Zero
	for _, e := range r.visible(mtx, func(e *domain.Entry) bool { return e.AccountID == accountID }) {
		if e.Direction == domain.DirectionDebit {
			debits = debits.Add(e.Amount)
		} else {
			credits = credits.Add(e.Amount)
		}
	}
	return credits, debits, nil
}
