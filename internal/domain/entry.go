package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction says which side of the account an entry hits.
type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// Entry is the immutable record of one balance change. Entries are appended
// in the same scope as the mutation they describe and never updated.
type Entry struct {
	CreatedAt      time.Time
	ID             string
	OperationID    string
	AccountID      int64
	Direction      Direction
	Amount         decimal.Decimal
	BalanceBefore  decimal.Decimal
	BalanceAfter   decimal.Decimal
	AccountVersion int64
}

// SignedAmount is the entry's effect on the balance.
func (e *Entry) SignedAmount() decimal.Decimal {
	if e.Direction == DirectionDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}
