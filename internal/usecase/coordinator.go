package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// Coordinator is the entry point for balance-mutating operations. It checks
// preconditions, builds the operation and hands it to the Controller,
// retrying through the RetryPolicy when the operation is idempotent.
type Coordinator struct {
	controller *Controller
	retry      *RetryPolicy
	metrics    MetricsRecorder
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator(controller *Controller, retry *RetryPolicy, metrics MetricsRecorder) *Coordinator {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Coordinator{
		controller: controller,
		retry:      retry,
		metrics:    metrics,
	}
}

// DebitInput represents input for debiting an account.
type DebitInput struct {
	AccountID      int64
	Amount         decimal.Decimal
	IdempotencyKey string
}

// CreditInput represents input for crediting an account.
type CreditInput struct {
	AccountID      int64
	Amount         decimal.Decimal
	IdempotencyKey string
}

// TransferInput represents input for moving money between two accounts.
type TransferInput struct {
	FromAccountID  int64
	ToAccountID    int64
	Amount         decimal.Decimal
	IdempotencyKey string
}

// Debit removes Amount from one account.
func (uc *Coordinator) Debit(ctx context.Context, input DebitInput) (*Result, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, uc.reject(ctx, OperationDebit, err)
	}

	return uc.run(ctx, Operation{
		Name: OperationDebit,
		Kind: OpBalanceWrite,
		Mutations: []Mutation{
			{AccountID: input.AccountID, Direction: domain.DirectionDebit, Amount: input.Amount},
		},
		IdempotencyKey: input.IdempotencyKey,
		Fingerprint:    domain.Fingerprint(OperationDebit, input.AccountID, 0, input.Amount),
	})
}

// Credit adds Amount to one account.
func (uc *Coordinator) Credit(ctx context.Context, input CreditInput) (*Result, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, uc.reject(ctx, OperationCredit, err)
	}

	return uc.run(ctx, Operation{
		Name: OperationCredit,
		Kind: OpBalanceWrite,
		Mutations: []Mutation{
			{AccountID: input.AccountID, Direction: domain.DirectionCredit, Amount: input.Amount},
		},
		IdempotencyKey: input.IdempotencyKey,
		Fingerprint:    domain.Fingerprint(OperationCredit, 0, input.AccountID, input.Amount),
	})
}

// Transfer debits the source and credits the destination in one scope.
func (uc *Coordinator) Transfer(ctx context.Context, input TransferInput) (*Result, error) {
	transfer := domain.Transfer{
		FromAccountID: input.FromAccountID,
		ToAccountID:   input.ToAccountID,
		Amount:        input.Amount,
	}
	if err := transfer.Validate(); err != nil {
		return nil, uc.reject(ctx, OperationTransfer, err)
	}

	return uc.run(ctx, Operation{
		Name: OperationTransfer,
		Kind: OpTransfer,
		Mutations: []Mutation{
			{AccountID: input.FromAccountID, Direction: domain.DirectionDebit, Amount: input.Amount},
			{AccountID: input.ToAccountID, Direction: domain.DirectionCredit, Amount: input.Amount},
		},
		IdempotencyKey: input.IdempotencyKey,
		Fingerprint:    domain.Fingerprint(OperationTransfer, input.FromAccountID, input.ToAccountID, input.Amount),
	})
}

func (uc *Coordinator) run(ctx context.Context, op Operation) (*Result, error) {
	if err := domain.ValidateIdempotencyKey(op.IdempotencyKey); err != nil {
		return nil, uc.reject(ctx, op.Name, err)
	}

	start := time.Now()

	var result *Result
	err := uc.retry.Run(ctx, op.Name, op.IdempotencyKey != "", func(ctx context.Context) error {
		var err error
		result, err = uc.controller.Execute(ctx, op)
		return err
	})

	outcome := domain.Classify(err)
	uc.metrics.ObserveOperation(op.Name, outcome, time.Since(start))

	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("operation", op.Name).
		Str("operation_id", result.OperationID).
		Bool("replayed", result.Replayed).
		Msg("operation committed")

	return result, nil
}

// reject records a precondition failure. No scope was opened for it.
func (uc *Coordinator) reject(ctx context.Context, operation string, err error) error {
	uc.metrics.ObserveOperation(operation, domain.Classify(err), 0)
	zerolog.Ctx(ctx).Info().Err(err).Str("operation", operation).Msg("operation rejected")
	return err
}
