package memory

import (
	"context"
	"fmt"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// IdempotencyRepository implements usecase.IdempotencyRepository.
type IdempotencyRepository struct {
	store *Store
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(store *Store) *IdempotencyRepository {
	return &IdempotencyRepository{store: store}
}

// Get returns the committed or tx-local record for key, or nil.
func (r *IdempotencyRepository) Get(_ context.Context, tx usecase.Transaction, key string) (*domain.IdempotencyRecord, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if record, ok := mtx.records[key]; ok {
		c := *record
		return &c, nil
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if record, ok := r.store.records[key]; ok {
		c := *record
		return &c, nil
	}
	return nil, nil
}

// Create stores the record in tx. Commit fails with a conflict if another
// transaction committed the same key in the meantime.
func (r *IdempotencyRepository) Create(_ context.Context, tx usecase.Transaction, record *domain.IdempotencyRecord) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := mtx.writable(); err != nil {
		return err
	}

	r.store.mu.RLock()
	_, exists := r.store.records[record.Key]
	r.store.mu.RUnlock()
	if _, local := mtx.records[record.Key]; exists || local {
		return fmt.Errorf("idempotency key %q: %w", record.Key, domain.ErrConflict)
	}

	c := *record
	mtx.records[record.Key] = &c
	return nil
}
