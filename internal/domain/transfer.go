package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Transfer moves Amount from one account to another as a single operation:
// one DEBIT entry on the source and one CREDIT entry on the destination,
// both carrying ID as their operation id. It is not stored as a row.
type Transfer struct {
	ID            string
	FromAccountID int64
	ToAccountID   int64
	Amount        decimal.Decimal
}

// Validate checks the preconditions that hold before any scope is opened.
func (t *Transfer) Validate() error {
	if t.FromAccountID == t.ToAccountID {
		return NewRuleViolation(ErrSameAccount, fmt.Sprintf("account %d", t.FromAccountID))
	}
	return ValidateAmount(t.Amount)
}
