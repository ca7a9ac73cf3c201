package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

func TestLedgerUseCase_CheckConsistency(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	a := l.open(t, "100")
	b := l.open(t, "50")

	if _, err := l.coordinator.Transfer(ctx, usecase.TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: amount("30")}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := l.coordinator.Debit(ctx, usecase.DebitInput{AccountID: b.ID, Amount: amount("5")}); err != nil {
		t.Fatalf("debit: %v", err)
	}

	report, err := usecase.NewLedgerUseCase(l.controller, memoryLedger(l)).CheckConsistency(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Consistent || !report.TotalBalance.Equal(amount("145")) {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !report.TotalCredits.Equal(amount("180")) || !report.TotalDebits.Equal(amount("35")) {
		t.Fatalf("unexpected totals: %+v", report)
	}
}

func TestLedgerUseCase_CheckConsistency_Inconsistent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	l := newLedger(t)
	ledgerRepo := mocks.NewMockLedgerRepository(ctrl)
	ledgerRepo.EXPECT().Totals(gomock.Any(), gomock.Any()).Return(usecase.LedgerTotals{
		Balances: decimal.NewFromInt(100),
		Credits:  decimal.NewFromInt(100),
		Debits:   decimal.NewFromInt(1),
	}, nil)

	report, err := usecase.NewLedgerUseCase(l.controller, ledgerRepo).CheckConsistency(context.Background())

	if !errors.Is(err, usecase.ErrInconsistentLedger) {
		t.Fatalf("expected ErrInconsistentLedger, got %v", err)
	}
	if report == nil || report.Consistent {
		t.Fatalf("expected an inconsistent report, got %+v", report)
	}
}
