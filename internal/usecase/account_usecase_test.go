package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

func TestAccountUseCase_CreateAccount(t *testing.T) {
	tests := []struct {
		name    string
		input   usecase.CreateAccountInput
		wantErr error
	}{
		{
			name:  "successful account creation",
			input: usecase.CreateAccountInput{Name: " Main ", Currency: "usd"},
		},
		{
			name:    "empty name",
			input:   usecase.CreateAccountInput{Name: "  ", Currency: "USD"},
			wantErr: domain.ErrInvalidAccountName,
		},
		{
			name:    "unknown currency",
			input:   usecase.CreateAccountInput{Name: "Main", Currency: "ZZZ"},
			wantErr: domain.ErrInvalidCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t)

			account, err := l.accountUC.CreateAccount(context.Background(), tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if domain.Classify(err) != domain.OutcomeRuleViolation {
					t.Fatalf("expected rule violation, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if account.ID == 0 || account.Name != "Main" || account.Currency != "USD" {
				t.Fatalf("unexpected account: %+v", account)
			}
			if !account.Balance.IsZero() || account.Version != 0 || account.Status != domain.AccountStatusActive {
				t.Fatalf("expected a fresh active account, got %+v", account)
			}
		})
	}
}

func TestAccountUseCase_GetAccount_NotFound(t *testing.T) {
	l := newLedger(t)

	_, err := l.accountUC.GetAccount(context.Background(), 42)

	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.AccountID != 42 {
		t.Fatalf("expected not found for 42, got %v", err)
	}
}

func TestAccountUseCase_ListAccounts(t *testing.T) {
	l := newLedger(t)
	for range 3 {
		l.open(t, "0")
	}

	accounts, err := l.accountUC.ListAccounts(context.Background(), usecase.ListAccountsInput{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 2 || accounts[0].ID != 1 || accounts[1].ID != 2 {
		t.Fatalf("unexpected page: %+v", accounts)
	}
}

func TestAccountUseCase_UpdateStatus(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	a := l.open(t, "10")

	suspended, err := l.accountUC.UpdateStatus(ctx, a.ID, domain.AccountStatusSuspended)
	if err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if suspended.Status != domain.AccountStatusSuspended || suspended.Version != a.Version+1 {
		t.Fatalf("unexpected account after suspend: %+v", suspended)
	}

	if _, err := l.coordinator.Credit(ctx, usecase.CreditInput{AccountID: a.ID, Amount: amount("1")}); !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("expected suspended account to reject credits, got %v", err)
	}

	if _, err := l.accountUC.UpdateStatus(ctx, a.ID, domain.AccountStatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err = l.accountUC.UpdateStatus(ctx, a.ID, domain.AccountStatusActive)
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected closed accounts to stay closed, got %v", err)
	}
	if got := l.get(t, a.ID); got.Version != a.Version+2 {
		t.Fatalf("rejected transition changed the version: %+v", got)
	}
}

func TestAccountUseCase_SetHighContention(t *testing.T) {
	l := newLedger(t)
	a := l.open(t, "0")

	updated, err := l.accountUC.SetHighContention(context.Background(), a.ID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.HighContention || !l.get(t, a.ID).HighContention {
		t.Fatalf("expected the flag to be persisted")
	}

	if _, err := l.accountUC.SetHighContention(context.Background(), 99, true); domain.Classify(err) != domain.OutcomeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAccountUseCase_UpdateStatusWritesEvent(t *testing.T) {
	l := newLedger(t)
	a := l.open(t, "0")

	if _, err := l.accountUC.UpdateStatus(context.Background(), a.ID, domain.AccountStatusSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	events, err := l.outbox.GetUnpublished(context.Background(), 10)
	if err != nil {
		t.Fatalf("outbox: %v", err)
	}

	last := events[len(events)-1]
	if last.EventType != domain.EventTypeStatusChanged || last.Payload["to"] != "SUSPENDED" {
		t.Fatalf("expected a status change event, got %+v", last)
	}
}
