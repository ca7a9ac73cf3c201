package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/tests/testutil"
)

func TestEdgeCases(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()

	l := testDB.NewLedger()
	router := l.Router(nil)

	t.Run("amount validation", func(t *testing.T) {
		testDB.TruncateAll(ctx)
		source := l.CreateAccount(ctx, "source", testutil.Amount("100"))
		dest := l.CreateAccount(ctx, "dest", testutil.Amount("0"))

		cases := []struct {
			name   string
			amount string
		}{
			{"zero", "0"},
			{"negative", "-5"},
			{"three decimal places", "1.005"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				rec := doJSON(t, router, http.MethodPost, "/api/v1/transfers/", map[string]any{
					"from_account_id": source.ID,
					"to_account_id":   dest.ID,
					"amount":          tc.amount,
				}, nil)
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
				}
			})
		}

		if got := l.Account(ctx, source.ID); got.Version != source.Version {
			t.Errorf("rejected requests must not touch the account: %+v", got)
		}
	})

	t.Run("transfer to same account", func(t *testing.T) {
		testDB.TruncateAll(ctx)
		account := l.CreateAccount(ctx, "self", testutil.Amount("100"))

		_, err := l.Coordinator.Transfer(ctx, usecase.TransferInput{
			FromAccountID: account.ID,
			ToAccountID:   account.ID,
			Amount:        testutil.Amount("1"),
		})
		if !errors.Is(err, domain.ErrSameAccount) {
			t.Fatalf("expected ErrSameAccount, got %v", err)
		}
	})

	t.Run("unknown participant rolls back the whole transfer", func(t *testing.T) {
		testDB.TruncateAll(ctx)
		source := l.CreateAccount(ctx, "source", testutil.Amount("100"))

		_, err := l.Coordinator.Transfer(ctx, usecase.TransferInput{
			FromAccountID: source.ID,
			ToAccountID:   source.ID + 1000,
			Amount:        testutil.Amount("1"),
		})
		if !errors.Is(err, domain.ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
		if got := l.Account(ctx, source.ID); !got.Balance.Equal(testutil.Amount("100")) || got.Version != source.Version {
			t.Errorf("source must be unchanged: %+v", got)
		}
	})

	t.Run("drain account to exactly zero", func(t *testing.T) {
		testDB.TruncateAll(ctx)
		account := l.CreateAccount(ctx, "drain", testutil.Amount("0.01"))

		if _, err := l.Coordinator.Debit(ctx, usecase.DebitInput{AccountID: account.ID, Amount: testutil.Amount("0.01")}); err != nil {
			t.Fatalf("debit: %v", err)
		}
		if _, err := l.Coordinator.Debit(ctx, usecase.DebitInput{AccountID: account.ID, Amount: testutil.Amount("0.01")}); !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}
		if got := l.Account(ctx, account.ID).Balance; !got.IsZero() {
			t.Errorf("expected zero balance, got %s", got)
		}
	})

	t.Run("large amounts keep precision", func(t *testing.T) {
		testDB.TruncateAll(ctx)
		account := l.CreateAccount(ctx, "large", testutil.Amount("1000000000000"))

		if _, err := l.Coordinator.Credit(ctx, usecase.CreditInput{AccountID: account.ID, Amount: testutil.Amount("999999999999.99")}); err != nil {
			t.Fatalf("credit: %v", err)
		}
		if _, err := l.Coordinator.Debit(ctx, usecase.DebitInput{AccountID: account.ID, Amount: testutil.Amount("0.99")}); err != nil {
			t.Fatalf("debit: %v", err)
		}
		if got := l.Account(ctx, account.ID).Balance; !got.Equal(testutil.Amount("1999999999999.00")) {
			t.Errorf("expected 1999999999999.00, got %s", got)
		}
	})

	t.Run("inactive account rejects balance changes", func(t *testing.T) {
		testDB.TruncateAll(ctx)
		account := l.CreateAccount(ctx, "frozen", testutil.Amount("10"))
		if _, err := l.Accounts.UpdateStatus(ctx, account.ID, domain.AccountStatusSuspended); err != nil {
			t.Fatalf("suspend: %v", err)
		}

		_, err := l.Coordinator.Debit(ctx, usecase.DebitInput{AccountID: account.ID, Amount: testutil.Amount("1")})
		if !errors.Is(err, domain.ErrAccountInactive) {
			t.Fatalf("expected ErrAccountInactive, got %v", err)
		}
	})

	t.Run("scope timeout is a system failure", func(t *testing.T) {
		testDB.TruncateAll(ctx)
		account := l.CreateAccount(ctx, "slow", testutil.Amount("10"))

		// Hold the row so the debit waits past its deadline.
		tx, err := testDB.Pool.Begin(ctx)
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()
		if _, err := tx.Exec(ctx, "SELECT 1 FROM accounts WHERE id = $1 FOR UPDATE", account.ID); err != nil {
			t.Fatalf("lock row: %v", err)
		}

		short, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()

		_, err = l.Coordinator.Debit(short, usecase.DebitInput{AccountID: account.ID, Amount: testutil.Amount("1")})
		if domain.Classify(err) != domain.OutcomeSystemFailure {
			t.Fatalf("expected system failure, got %v (%s)", err, domain.Classify(err))
		}
		_ = tx.Rollback(ctx)

		if got := l.Account(ctx, account.ID); !got.Balance.Equal(testutil.Amount("10")) {
			t.Errorf("timed out debit must not change the balance: %s", got.Balance)
		}
	})

	t.Run("entries pagination over HTTP", func(t *testing.T) {
		testDB.TruncateAll(ctx)
		account := l.CreateAccount(ctx, "paged", testutil.Amount("0"))
		for i := 0; i < 5; i++ {
			if _, err := l.Coordinator.Credit(ctx, usecase.CreditInput{AccountID: account.ID, Amount: testutil.Amount("1")}); err != nil {
				t.Fatalf("credit: %v", err)
			}
		}

		rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d/entries?limit=2&offset=1", account.ID), nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		entries := decode[[]dto.EntryResponse](t, rec)
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		// Newest first.
		if entries[0].AccountVersion != 4 || entries[1].AccountVersion != 3 {
			t.Errorf("unexpected page order: %d, %d", entries[0].AccountVersion, entries[1].AccountVersion)
		}

		rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d/reconciliation", account.ID), nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("reconciliation: %d", rec.Code)
		}
		if recon := decode[dto.ReconciliationResponse](t, rec); !recon.IsReconciled || recon.CalculatedBalance != "5.00" {
			t.Errorf("unexpected reconciliation %+v", recon)
		}
	})
}
