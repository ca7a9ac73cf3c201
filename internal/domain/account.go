package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
	AccountStatusClosed    AccountStatus = "CLOSED"
)

// IsValid reports whether s is a known status.
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountStatusActive, AccountStatusSuspended, AccountStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// A closed account stays closed.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	if !next.IsValid() || s == AccountStatusClosed {
		return false
	}
	return s != next
}

// Account represents a ledger account that holds a balance.
//
// Version starts at zero and is bumped exactly once by every committed
// mutation of the row. It is the expected value of the conditional write.
type Account struct {
	ID             int64
	Name           string
	Currency       string
	Balance        decimal.Decimal
	Status         AccountStatus
	Version        int64
	HighContention bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewAccount returns an active account with a zero balance.
func NewAccount(name, currency string, now time.Time) *Account {
	return &Account{
		Name:      name,
		Currency:  currency,
		Balance:   decimal.Zero,
		Status:    AccountStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive reports whether the account accepts balance mutations.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// ValidateDebit checks if account can be debited by amount.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if !a.IsActive() {
		return NewRuleViolation(ErrAccountInactive, fmt.Sprintf("account %d is %s", a.ID, a.Status))
	}
	if a.Balance.LessThan(amount) {
		return NewRuleViolation(ErrInsufficientFunds,
			fmt.Sprintf("account %d balance %s is below %s", a.ID, a.Balance.StringFixed(2), amount.StringFixed(2)))
	}
	return nil
}

// ValidateCredit checks if account can be credited by amount.
func (a *Account) ValidateCredit(amount decimal.Decimal) error {
	if !a.IsActive() {
		return NewRuleViolation(ErrAccountInactive, fmt.Sprintf("account %d is %s", a.ID, a.Status))
	}
	return nil
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Sub(amount)
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(amount)
}

// Clone returns a copy that can be mutated without touching a.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
