package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

// IdempotencyRepository implements usecase.IdempotencyRepository.
type IdempotencyRepository struct{}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{}
}

// Get returns nil, nil when the key has not been used.
func (r *IdempotencyRepository) Get(ctx context.Context, tx usecase.Transaction, key string) (*domain.IdempotencyRecord, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("get idempotency key", err)
	}

	return &domain.IdempotencyRecord{
		Key:         row.Key,
		Operation:   row.Operation,
		Fingerprint: row.Fingerprint,
		OperationID: uuidToString(row.OperationID),
		CreatedAt:   row.CreatedAt.Time,
	}, nil
}

// Create stores the record. A concurrent scope that stored the same key
// first makes this a conflict.
func (r *IdempotencyRepository) Create(ctx context.Context, tx usecase.Transaction, record *domain.IdempotencyRecord) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	operationID, err := stringToUUID(record.OperationID)
	if err != nil {
		return err
	}

	err = queries.CreateIdempotencyKey(ctx, generated.CreateIdempotencyKeyParams{
		Key:         record.Key,
		Operation:   record.Operation,
		Fingerprint: record.Fingerprint,
		OperationID: operationID,
		CreatedAt:   timeToPgTimestamptz(record.CreatedAt),
	})

	return translate("create idempotency key", err)
}
