package usecase_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

func TestRetryPolicy_RetriesConflictsWithDoublingDelay(t *testing.T) {
	timer := &instantTimer{}
	policy := usecase.NewRetryPolicy(3, 100*time.Millisecond, usecase.WithRetryTimer(timer))

	attempts := 0
	err := policy.Run(context.Background(), "transfer", true, func(context.Context) error {
		attempts++
		return domain.ErrConflict
	})

	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected the last conflict after exhaustion, got %v", err)
	}
	if attempts != 4 {
		t.Fatalf("expected 1 attempt + 3 retries, got %d attempts", attempts)
	}

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if got := timer.Delays(); !slices.Equal(got, want) {
		t.Fatalf("delays = %v, want %v", got, want)
	}
}

func TestRetryPolicy_StopsOnSuccess(t *testing.T) {
	policy := usecase.NewRetryPolicy(3, time.Millisecond, usecase.WithRetryTimer(&instantTimer{}))

	attempts := 0
	err := policy.Run(context.Background(), "transfer", true, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &domain.ConflictError{AccountID: 1}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryPolicy_NeverRetriesOtherOutcomes(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"rule violation", domain.NewRuleViolation(domain.ErrInsufficientFunds, "")},
		{"not found", &domain.NotFoundError{AccountID: 1}},
		{"system failure", domain.NewSystemError("commit", errors.New("connection reset"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := usecase.NewRetryPolicy(3, time.Millisecond, usecase.WithRetryTimer(&instantTimer{}))

			attempts := 0
			err := policy.Run(context.Background(), "debit", true, func(context.Context) error {
				attempts++
				return tt.err
			})

			if attempts != 1 {
				t.Fatalf("expected a single attempt, got %d", attempts)
			}
			if domain.Classify(err) != domain.Classify(tt.err) {
				t.Fatalf("outcome changed: %v", err)
			}
		})
	}
}

func TestRetryPolicy_NonIdempotentRunsOnce(t *testing.T) {
	policy := usecase.NewRetryPolicy(3, time.Millisecond, usecase.WithRetryTimer(&instantTimer{}))

	attempts := 0
	err := policy.Run(context.Background(), "debit", false, func(context.Context) error {
		attempts++
		return domain.ErrConflict
	})

	if !errors.Is(err, domain.ErrConflict) || attempts != 1 {
		t.Fatalf("expected one conflicted attempt, got %d attempts and %v", attempts, err)
	}
}

func TestRetryPolicy_CancelledDuringWaitIsSystemFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := usecase.NewRetryPolicy(3, time.Hour)

	err := policy.Run(ctx, "transfer", true, func(context.Context) error {
		cancel()
		return domain.ErrConflict
	})

	if domain.Classify(err) != domain.OutcomeSystemFailure {
		t.Fatalf("expected system failure, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}
