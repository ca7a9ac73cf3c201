package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Name     string `json:"name"     validate:"required,max=255"`
	Currency string `json:"currency" validate:"required,len=3,alpha"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Name:     r.Name,
		Currency: r.Currency,
	}
}

// UpdateStatusRequest moves an account through its lifecycle.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE SUSPENDED CLOSED"`
}

// AccountStatus returns the requested status.
func (r *UpdateStatusRequest) AccountStatus() domain.AccountStatus {
	return domain.AccountStatus(r.Status)
}

// SetContentionRequest flags or unflags an account as hot.
type SetContentionRequest struct {
	HighContention *bool `json:"high_contention" validate:"required"`
}

// AmountRequest is the body of a debit or credit.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ToDebitInput converts to a debit for accountID.
func (r *AmountRequest) ToDebitInput(accountID int64, idempotencyKey string) usecase.DebitInput {
	return usecase.DebitInput{
		AccountID:      accountID,
		Amount:         r.Amount,
		IdempotencyKey: idempotencyKey,
	}
}

// ToCreditInput converts to a credit for accountID.
func (r *AmountRequest) ToCreditInput(accountID int64, idempotencyKey string) usecase.CreditInput {
	return usecase.CreditInput{
		AccountID:      accountID,
		Amount:         r.Amount,
		IdempotencyKey: idempotencyKey,
	}
}

// CreateTransferRequest represents a request to create a transfer.
type CreateTransferRequest struct {
	FromAccountID int64           `json:"from_account_id" validate:"required,gt=0"`
	ToAccountID   int64           `json:"to_account_id"   validate:"required,gt=0"`
	Amount        decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransferRequest) ToUseCaseInput(idempotencyKey string) usecase.TransferInput {
	return usecase.TransferInput{
		FromAccountID:  r.FromAccountID,
		ToAccountID:    r.ToAccountID,
		Amount:         r.Amount,
		IdempotencyKey: idempotencyKey,
	}
}
