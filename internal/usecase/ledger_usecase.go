package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInconsistentLedger is returned when balances disagree with entries.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: balances do not match entries")
)

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	controller *Controller
	ledgerRepo LedgerRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(controller *Controller, ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		controller: controller,
		ledgerRepo: ledgerRepo,
	}
}

// ConsistencyReport is the outcome of a ledger-wide check.
type ConsistencyReport struct {
	TotalBalance decimal.Decimal
	TotalCredits decimal.Decimal
	TotalDebits  decimal.Decimal
	Consistent   bool
	CheckedAt    time.Time
}

// CheckConsistency verifies that the sum of all balances equals the sum of
// all credits minus the sum of all debits. An inconsistent ledger returns
// the report together with ErrInconsistentLedger.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	var totals LedgerTotals
	err := uc.controller.WithinScope(ctx, OpReport, func(ctx context.Context, tx Transaction) error {
		var err error
		totals, err = uc.ledgerRepo.Totals(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := &ConsistencyReport{
		TotalBalance: totals.Balances,
		TotalCredits: totals.Credits,
		TotalDebits:  totals.Debits,
		Consistent:   totals.Balances.Equal(totals.Credits.Sub(totals.Debits)),
		CheckedAt:    uc.controller.now(),
	}
	if !report.Consistent {
		return report, ErrInconsistentLedger
	}
	return report, nil
}
