package postgres

import (
	"context"

	"github.com/iho/bankledger/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct{}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

// Totals sums balances and entries in one statement so both sides come
// from the same snapshot.
func (r *LedgerRepository) Totals(ctx context.Context, tx usecase.Transaction) (usecase.LedgerTotals, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return usecase.LedgerTotals{}, err
	}

	row, err := queries.LedgerTotals(ctx)
	if err != nil {
		return usecase.LedgerTotals{}, translate("ledger totals", err)
	}

	return usecase.LedgerTotals{
		Balances: numericToDecimal(row.TotalBalance),
		Credits:  numericToDecimal(row.TotalCredits),
		Debits:   numericToDecimal(row.TotalDebits),
	}, nil
}
