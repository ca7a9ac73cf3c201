package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

// Totals sums committed balances and entries under one read lock, so the
// three figures describe the same commit.
func (r *LedgerRepository) Totals(_ context.Context, _ usecase.Transaction) (usecase.LedgerTotals, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	totals := usecase.LedgerTotals{Balances: decimal.Zero, Credits: decimal.Zero, Debits: decimal.Zero}
	for _, row := range r.store.accounts {
		totals.Balances = totals.Balances.Add(row.account.Balance)
	}
	for _, e := range r.store.entries {
		if e.Direction == domain.DirectionDebit {
			totals.Debits = totals.Debits.Add(e.Amount)
		} else {
			totals.Credits = totals.Credits.Add(e.Amount)
		}
	}
	return totals, nil
}
