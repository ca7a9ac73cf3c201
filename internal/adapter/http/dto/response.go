package dto

import (
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Currency       string    `json:"currency"`
	Balance        string    `json:"balance"`
	Status         string    `json:"status"`
	Version        int64     `json:"version"`
	HighContention bool      `json:"high_contention"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Currency:       a.Currency,
		Balance:        a.Balance.StringFixed(domain.AmountScale),
		Status:         string(a.Status),
		Version:        a.Version,
		HighContention: a.HighContention,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse is a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID             string    `json:"id"`
	OperationID    string    `json:"operation_id"`
	AccountID      int64     `json:"account_id"`
	Direction      string    `json:"direction"`
	Amount         string    `json:"amount"`
	BalanceBefore  string    `json:"balance_before"`
	BalanceAfter   string    `json:"balance_after"`
	AccountVersion int64     `json:"account_version"`
	CreatedAt      time.Time `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:             e.ID,
		OperationID:    e.OperationID,
		AccountID:      e.AccountID,
		Direction:      string(e.Direction),
		Amount:         e.Amount.StringFixed(domain.AmountScale),
		BalanceBefore:  e.BalanceBefore.StringFixed(domain.AmountScale),
		BalanceAfter:   e.BalanceAfter.StringFixed(domain.AmountScale),
		AccountVersion: e.AccountVersion,
		CreatedAt:      e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// OperationResponse is the result of a debit, credit or transfer.
type OperationResponse struct {
	OperationID string             `json:"operation_id"`
	Replayed    bool               `json:"replayed"`
	Accounts    []*AccountResponse `json:"accounts,omitempty"`
	Entries     []*EntryResponse   `json:"entries"`
}

// OperationFromResult converts a committed operation to response.
func OperationFromResult(r *usecase.Result) *OperationResponse {
	return &OperationResponse{
		OperationID: r.OperationID,
		Replayed:    r.Replayed,
		Accounts:    AccountsFromDomain(r.Accounts),
		Entries:     EntriesFromDomain(r.Entries),
	}
}

// ReconciliationResponse compares an account's balance with its entries.
type ReconciliationResponse struct {
	AccountID         int64     `json:"account_id"`
	Version           int64     `json:"version"`
	RecordedBalance   string    `json:"recorded_balance"`
	CalculatedBalance string    `json:"calculated_balance"`
	Difference        string    `json:"difference"`
	IsReconciled      bool      `json:"is_reconciled"`
	LastChecked       time.Time `json:"last_checked"`
}

// ReconciliationFromResult converts a reconciliation result to response.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:         r.AccountID,
		Version:           r.Version,
		RecordedBalance:   r.RecordedBalance.StringFixed(domain.AmountScale),
		CalculatedBalance: r.CalculatedBalance.StringFixed(domain.AmountScale),
		Difference:        r.Difference.StringFixed(domain.AmountScale),
		IsReconciled:      r.IsReconciled,
		LastChecked:       r.LastChecked,
	}
}

// ConsistencyResponse is the ledger-wide check result.
type ConsistencyResponse struct {
	Status       string    `json:"status"`
	Consistent   bool      `json:"consistent"`
	TotalBalance string    `json:"total_balance"`
	TotalCredits string    `json:"total_credits"`
	TotalDebits  string    `json:"total_debits"`
	CheckedAt    time.Time `json:"checked_at"`
}

// ConsistencyFromReport converts a consistency report to response.
func ConsistencyFromReport(r *usecase.ConsistencyReport) *ConsistencyResponse {
	status := "consistent"
	if !r.Consistent {
		status = "inconsistent"
	}
	return &ConsistencyResponse{
		Status:       status,
		Consistent:   r.Consistent,
		TotalBalance: r.TotalBalance.StringFixed(domain.AmountScale),
		TotalCredits: r.TotalCredits.StringFixed(domain.AmountScale),
		TotalDebits:  r.TotalDebits.StringFixed(domain.AmountScale),
		CheckedAt:    r.CheckedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details []ValidationError `json:"details,omitempty"`
}
