package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct{}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository() *EntryRepository {
	return &EntryRepository{}
}

// Create creates a new entry.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	id, err := stringToUUID(entry.ID)
	if err != nil {
		return err
	}
	operationID, err := stringToUUID(entry.OperationID)
	if err != nil {
		return err
	}

	_, err = queries.CreateEntry(ctx, generated.CreateEntryParams{
		ID:             id,
		OperationID:    operationID,
		AccountID:      entry.AccountID,
		Direction:      string(entry.Direction),
		Amount:         decimalToNumeric(entry.Amount),
		BalanceBefore:  decimalToNumeric(entry.BalanceBefore),
		BalanceAfter:   decimalToNumeric(entry.BalanceAfter),
		AccountVersion: entry.AccountVersion,
		CreatedAt:      timeToPgTimestamptz(entry.CreatedAt),
	})

	return translate("create entry", err)
}

// ListByAccount lists an account's entries, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, tx usecase.Transaction, accountID int64, limit, offset int) ([]*domain.Entry, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	rows, err := queries.ListEntriesByAccount(ctx, generated.ListEntriesByAccountParams{
		AccountID: accountID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, translate("list entries", err)
	}

	return rowsToEntries(rows), nil
}

// ListByOperation lists the entries written by one operation.
func (r *EntryRepository) ListByOperation(ctx context.Context, tx usecase.Transaction, operationID string) ([]*domain.Entry, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	id, err := stringToUUID(operationID)
	if err != nil {
		// Not a uuid, so no operation has it.
		return []*domain.Entry{}, nil
	}

	rows, err := queries.ListEntriesByOperation(ctx, id)
	if err != nil {
		return nil, translate("list operation entries", err)
	}

	return rowsToEntries(rows), nil
}

// SumByAccount returns the credit and debit totals of an account.
func (r *EntryRepository) SumByAccount(ctx context.Context, tx usecase.Transaction, accountID int64) (decimal.Decimal, decimal.Decimal, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	row, err := queries.SumEntriesByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, decimal.Zero, translate("sum entries", err)
	}

	return numericToDecimal(row.Credits), numericToDecimal(row.Debits), nil
}

func rowsToEntries(rows []generated.Entry) []*domain.Entry {
	entries := make([]*domain.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToEntry(row))
	}
	return entries
}

func rowToEntry(row generated.Entry) *domain.Entry {
	return &domain.Entry{
		ID:             uuidToString(row.ID),
		OperationID:    uuidToString(row.OperationID),
		AccountID:      row.AccountID,
		Direction:      domain.Direction(row.Direction),
		Amount:         numericToDecimal(row.Amount),
		BalanceBefore:  numericToDecimal(row.BalanceBefore),
		BalanceAfter:   numericToDecimal(row.BalanceAfter),
		AccountVersion: row.AccountVersion,
		CreatedAt:      row.CreatedAt.Time,
	}
}
