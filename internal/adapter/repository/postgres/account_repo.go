package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct{}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{}
}

// Create inserts the account; the database assigns its id.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	row, err := queries.CreateAccount(ctx, generated.CreateAccountParams{
		Name:           account.Name,
		Currency:       account.Currency,
		Balance:        decimalToNumeric(account.Balance),
		Status:         string(account.Status),
		Version:        account.Version,
		HighContention: account.HighContention,
		CreatedAt:      timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt:      timeToPgTimestamptz(account.UpdatedAt),
	})
	if err != nil {
		return translate("create account", err)
	}

	account.ID = row.ID
	return nil
}

// GetByID retrieves an account without locking it.
func (r *AccountRepository) GetByID(ctx context.Context, tx usecase.Transaction, id int64) (*domain.Account, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, translate("get account", err)
	}

	return rowToAccount(row), nil
}

// GetByIDForUpdate retrieves an account by ID with a FOR UPDATE lock.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id int64) (*domain.Account, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetAccountByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, translate("lock account", err)
	}

	return rowToAccount(row), nil
}

// CompareAndSwap writes the account only if its version is still
// expectedVersion. The UPDATE takes the row lock.
func (r *AccountRepository) CompareAndSwap(ctx context.Context, tx usecase.Transaction, account *domain.Account, expectedVersion int64) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	affected, err := queries.CompareAndSwapAccount(ctx, generated.CompareAndSwapAccountParams{
		ID:             account.ID,
		Version:        expectedVersion,
		Balance:        decimalToNumeric(account.Balance),
		Status:         string(account.Status),
		HighContention: account.HighContention,
		UpdatedAt:      timeToPgTimestamptz(account.UpdatedAt),
	})
	if err != nil {
		return translate("compare and swap", err)
	}

	if affected == 0 {
		return &domain.ConflictError{AccountID: account.ID, ExpectedVersion: expectedVersion}
	}

	account.Version = expectedVersion + 1
	return nil
}

// List lists accounts ordered by id.
func (r *AccountRepository) List(ctx context.Context, tx usecase.Transaction, limit, offset int) ([]*domain.Account, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	rows, err := queries.ListAccounts(ctx, generated.ListAccountsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, translate("list accounts", err)
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:             row.ID,
		Name:           row.Name,
		Currency:       row.Currency,
		Balance:        numericToDecimal(row.Balance),
		Status:         domain.AccountStatus(row.Status),
		Version:        row.Version,
		HighContention: row.HighContention,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}
}
