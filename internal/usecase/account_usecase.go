package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/iho/bankledger/internal/domain"
)

// AccountUseCase handles account lifecycle. Balances are only changed by
// the Coordinator.
type AccountUseCase struct {
	controller  *Controller
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
}

// NewAccountUseCase creates a new AccountUseCase. outboxRepo may be nil.
func NewAccountUseCase(controller *Controller, accountRepo AccountRepository, outboxRepo OutboxRepository, idGen IDGenerator) *AccountUseCase {
	return &AccountUseCase{
		controller:  controller,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
	}
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	Name     string
	Currency string
}

// CreateAccount creates an active account with a zero balance.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if err := domain.ValidateAccountName(input.Name); err != nil {
		return nil, domain.NewRuleViolation(err, "")
	}
	if err := domain.ValidateCurrency(input.Currency); err != nil {
		return nil, domain.NewRuleViolation(err, "")
	}

	account := domain.NewAccount(strings.TrimSpace(input.Name), strings.ToUpper(strings.TrimSpace(input.Currency)), uc.controller.now())

	err := uc.controller.WithinScope(ctx, OpAccountWrite, func(ctx context.Context, tx Transaction) error {
		if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		if uc.outboxRepo == nil {
			return nil
		}
		return uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   fmt.Sprint(account.ID),
			AggregateType: domain.AggregateTypeAccount,
			EventType:     domain.EventTypeAccountCreated,
			Payload: domain.AccountCreatedEvent{
				AccountID: account.ID,
				Name:      account.Name,
				Currency:  account.Currency,
			}.Payload(),
			CreatedAt: account.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	var account *domain.Account
	err := uc.controller.WithinScope(ctx, OpAccountRead, func(ctx context.Context, tx Transaction) error {
		var err error
		account, err = uc.accountRepo.GetByID(ctx, tx, id)
		return notFound(err, id)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	var accounts []*domain.Account
	err := uc.controller.WithinScope(ctx, OpAccountRead, func(ctx context.Context, tx Transaction) error {
		var err error
		accounts, err = uc.accountRepo.List(ctx, tx, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpdateStatus moves the account through its lifecycle.
func (uc *AccountUseCase) UpdateStatus(ctx context.Context, id int64, status domain.AccountStatus) (*domain.Account, error) {
	return uc.controller.UpdateAccount(ctx, id, func(account *domain.Account) (*domain.OutboxEvent, error) {
		if !account.Status.CanTransitionTo(status) {
			return nil, domain.NewRuleViolation(domain.ErrInvalidStatus, fmt.Sprintf("%s -> %s", account.Status, status))
		}

		event := &domain.OutboxEvent{
			AggregateID:   fmt.Sprint(account.ID),
			AggregateType: domain.AggregateTypeAccount,
			EventType:     domain.EventTypeStatusChanged,
			Payload: domain.StatusChangedEvent{
				AccountID: account.ID,
				From:      string(account.Status),
				To:        string(status),
			}.Payload(),
		}
		account.Status = status
		return event, nil
	})
}

// SetHighContention flags or unflags the account for the pessimistic path.
func (uc *AccountUseCase) SetHighContention(ctx context.Context, id int64, hot bool) (*domain.Account, error) {
	return uc.controller.UpdateAccount(ctx, id, func(account *domain.Account) (*domain.OutboxEvent, error) {
		account.HighContention = hot
		return nil, nil
	})
}
