package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationUseCase compares recorded balances with their entries.
type ReconciliationUseCase struct {
	controller  *Controller
	accountRepo AccountRepository
	entryRepo   EntryRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(controller *Controller, accountRepo AccountRepository, entryRepo EntryRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		controller:  controller,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	AccountID         int64
	Version           int64
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
	LastChecked       time.Time
}

// ReconcileAccount recomputes the balance of one account from its entries.
// Both reads happen in one scope so they see the same commits.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountID int64) (*ReconciliationResult, error) {
	var result *ReconciliationResult
	err := uc.controller.WithinScope(ctx, OpReport, func(ctx context.Context, tx Transaction) error {
		account, err := uc.accountRepo.GetByID(ctx, tx, accountID)
		if err != nil {
			return notFound(err, accountID)
		}

		credits, debits, err := uc.entryRepo.SumByAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		calculated := credits.Sub(debits)
		result = &ReconciliationResult{
			AccountID:         accountID,
			Version:           account.Version,
			RecordedBalance:   account.Balance,
			CalculatedBalance: calculated,
			Difference:        account.Balance.Sub(calculated),
			IsReconciled:      account.Balance.Equal(calculated),
			LastChecked:       uc.controller.now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
