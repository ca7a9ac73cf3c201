package memory

import (
	"context"
	"slices"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create assigns the next id. The account is visible to others after commit.
func (r *AccountRepository) Create(_ context.Context, tx usecase.Transaction, account *domain.Account) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := mtx.writable(); err != nil {
		return err
	}

	r.store.mu.Lock()
	r.store.nextID++
	account.ID = r.store.nextID
	r.store.mu.Unlock()

	mtx.writes[account.ID] = account.Clone()
	mtx.created[account.ID] = true
	return nil
}

// GetByID retrieves an account without locking it.
func (r *AccountRepository) GetByID(_ context.Context, tx usecase.Transaction, id int64) (*domain.Account, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	return mtx.read(id)
}

// GetByIDForUpdate locks the row until tx finishes.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id int64) (*domain.Account, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := mtx.lock(ctx, id); err != nil {
		return nil, err
	}
	return mtx.read(id)
}

// CompareAndSwap takes the row lock, then writes only if the version tx
// sees is still expectedVersion.
func (r *AccountRepository) CompareAndSwap(ctx context.Context, tx usecase.Transaction, account *domain.Account, expectedVersion int64) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := mtx.writable(); err != nil {
		return err
	}
	if err := mtx.lock(ctx, account.ID); err != nil {
		return err
	}

	current, err := mtx.read(account.ID)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return &domain.ConflictError{AccountID: account.ID, ExpectedVersion: expectedVersion}
	}

	next := account.Clone()
	next.ID = current.ID
	next.Name = current.Name
	next.Currency = current.Currency
	next.CreatedAt = current.CreatedAt
	next.Version = expectedVersion + 1
	mtx.writes[account.ID] = next

	account.Version = next.Version
	return nil
}

// List returns accounts ordered by id.
func (r *AccountRepository) List(_ context.Context, tx usecase.Transaction, limit, offset int) ([]*domain.Account, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	ids := make([]int64, 0, len(r.store.accounts)+len(mtx.created))
	for id := range r.store.accounts {
		ids = append(ids, id)
	}
	r.store.mu.RUnlock()
	for id := range mtx.created {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if offset >= len(ids) {
		return []*domain.Account{}, nil
	}
	ids = ids[offset:min(offset+limit, len(ids))]

	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		account, err := mtx.read(id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}
