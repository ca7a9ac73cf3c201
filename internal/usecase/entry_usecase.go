package usecase

import (
	"context"

	"github.com/iho/bankledger/internal/domain"
)

// EntryUseCase handles entry business logic.
type EntryUseCase struct {
	controller *Controller
	entryRepo  EntryRepository
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(controller *Controller, entryRepo EntryRepository) *EntryUseCase {
	return &EntryUseCase{
		controller: controller,
		entryRepo:  entryRepo,
	}
}

// GetEntriesByAccountInput represents input for listing entries.
type GetEntriesByAccountInput struct {
	AccountID int64
	Limit     int
	Offset    int
}

// GetEntriesByAccount lists entries for an account, newest first.
func (uc *EntryUseCase) GetEntriesByAccount(ctx context.Context, input GetEntriesByAccountInput) ([]*domain.Entry, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	var entries []*domain.Entry
	err := uc.controller.WithinScope(ctx, OpReport, func(ctx context.Context, tx Transaction) error {
		var err error
		entries, err = uc.entryRepo.ListByAccount(ctx, tx, input.AccountID, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetEntriesByOperation lists the entries written by one operation.
func (uc *EntryUseCase) GetEntriesByOperation(ctx context.Context, operationID string) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	err := uc.controller.WithinScope(ctx, OpReport, func(ctx context.Context, tx Transaction) error {
		var err error
		entries, err = uc.entryRepo.ListByOperation(ctx, tx, operationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
