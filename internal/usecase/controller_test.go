package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

type controllerMocks struct {
	txManager   *mocks.MockTransactionManager
	tx          *mocks.MockTransaction
	accounts    *mocks.MockAccountRepository
	entries     *mocks.MockEntryRepository
	idempotency *mocks.MockIdempotencyRepository
	idGen       *mocks.MockIDGenerator
	tracker     *mocks.MockContentionTracker
	metrics     *mocks.MockMetricsRecorder
}

func newControllerWithMocks(t *testing.T) (*usecase.Controller, *controllerMocks) {
	ctrl := gomock.NewController(t)
	m := &controllerMocks{
		txManager:   mocks.NewMockTransactionManager(ctrl),
		tx:          mocks.NewMockTransaction(ctrl),
		accounts:    mocks.NewMockAccountRepository(ctrl),
		entries:     mocks.NewMockEntryRepository(ctrl),
		idempotency: mocks.NewMockIdempotencyRepository(ctrl),
		idGen:       mocks.NewMockIDGenerator(ctrl),
		tracker:     mocks.NewMockContentionTracker(ctrl),
		metrics:     mocks.NewMockMetricsRecorder(ctrl),
	}

	c := usecase.NewController(usecase.ControllerConfig{
		TxManager:   m.txManager,
		Accounts:    m.accounts,
		Entries:     m.entries,
		Idempotency: m.idempotency,
		IDGen:       m.idGen,
		Tracker:     m.tracker,
		Metrics:     m.metrics,
		Selector:    usecase.NewIsolationSelector(false),
	})
	return c, m
}

func debitOp(accountID int64, value string) usecase.Operation {
	return usecase.Operation{
		Name: usecase.OperationDebit,
		Kind: usecase.OpBalanceWrite,
		Mutations: []usecase.Mutation{
			{AccountID: accountID, Direction: domain.DirectionDebit, Amount: decimal.RequireFromString(value)},
		},
	}
}

func TestController_BeginFailureIsSystemFailure(t *testing.T) {
	c, m := newControllerWithMocks(t)

	m.txManager.EXPECT().
		Begin(gomock.Any(), usecase.TxOptions{Isolation: usecase.RepeatableRead}).
		Return(nil, errors.New("connection refused"))

	_, err := c.Execute(context.Background(), debitOp(1, "10"))

	if domain.Classify(err) != domain.OutcomeSystemFailure {
		t.Fatalf("expected system failure, got %v", err)
	}
}

func TestController_ConflictRollsBackAndRecordsContention(t *testing.T) {
	c, m := newControllerWithMocks(t)
	account := &domain.Account{ID: 1, Balance: decimal.NewFromInt(100), Status: domain.AccountStatusActive, Version: 4}

	gomock.InOrder(
		m.txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).Return(m.tx, nil),
		m.tracker.EXPECT().IsHot(gomock.Any(), int64(1)).Return(false, nil),
		m.accounts.EXPECT().GetByID(gomock.Any(), m.tx, int64(1)).Return(account, nil),
		m.idGen.EXPECT().Generate().Return("id").Times(2),
		m.accounts.EXPECT().
			CompareAndSwap(gomock.Any(), m.tx, gomock.Any(), int64(4)).
			Return(&domain.ConflictError{AccountID: 1, ExpectedVersion: 4}),
		m.tx.EXPECT().Rollback(gomock.Any()).Return(nil),
		m.metrics.EXPECT().IncConflict(usecase.OperationDebit),
		m.tracker.EXPECT().RecordConflict(gomock.Any(), int64(1)).Return(nil),
	)

	_, err := c.Execute(context.Background(), debitOp(1, "10"))

	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestController_CommitFailureIsSystemFailure(t *testing.T) {
	c, m := newControllerWithMocks(t)
	account := &domain.Account{ID: 1, Balance: decimal.NewFromInt(100), Status: domain.AccountStatusActive}

	m.txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).Return(m.tx, nil)
	m.tracker.EXPECT().IsHot(gomock.Any(), int64(1)).Return(false, nil)
	m.accounts.EXPECT().GetByID(gomock.Any(), m.tx, int64(1)).Return(account, nil)
	m.idGen.EXPECT().Generate().Return("id").Times(2)
	m.accounts.EXPECT().CompareAndSwap(gomock.Any(), m.tx, gomock.Any(), int64(0)).
		DoAndReturn(func(_ context.Context, _ usecase.Transaction, a *domain.Account, expected int64) error {
			if !a.Balance.Equal(decimal.NewFromInt(90)) {
				t.Errorf("expected new balance 90, got %s", a.Balance)
			}
			a.Version = expected + 1
			return nil
		})
	m.entries.EXPECT().Create(gomock.Any(), m.tx, gomock.Any()).Return(nil)
	m.tx.EXPECT().Commit(gomock.Any()).Return(errors.New("connection reset"))

	_, err := c.Execute(context.Background(), debitOp(1, "10"))

	if domain.Classify(err) != domain.OutcomeSystemFailure {
		t.Fatalf("expected system failure, got %v", err)
	}
}

func TestController_TrackerErrorFallsBackToOptimisticRead(t *testing.T) {
	c, m := newControllerWithMocks(t)

	m.txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).Return(m.tx, nil)
	m.tracker.EXPECT().IsHot(gomock.Any(), int64(1)).Return(false, errors.New("redis down"))
	m.accounts.EXPECT().GetByID(gomock.Any(), m.tx, int64(1)).Return(nil, domain.ErrAccountNotFound)
	m.tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	_, err := c.Execute(context.Background(), debitOp(1, "10"))

	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.AccountID != 1 {
		t.Fatalf("expected not found for account 1, got %v", err)
	}
}

func TestController_StorageErrorIsSystemFailure(t *testing.T) {
	c, m := newControllerWithMocks(t)

	m.txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).Return(m.tx, nil)
	m.tracker.EXPECT().IsHot(gomock.Any(), int64(1)).Return(false, nil)
	m.accounts.EXPECT().GetByID(gomock.Any(), m.tx, int64(1)).Return(nil, errors.New("disk full"))
	m.tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	_, err := c.Execute(context.Background(), debitOp(1, "10"))

	var se *domain.SystemError
	if !errors.As(err, &se) {
		t.Fatalf("expected system error, got %v", err)
	}
}
