package domain

import "time"

// Event types
const (
	EventTypeDebited        = "ledger.debited"
	EventTypeCredited       = "ledger.credited"
	EventTypeTransferred    = "ledger.transferred"
	EventTypeAccountCreated = "account.created"
	EventTypeStatusChanged  = "account.status_changed"
)

// Aggregate types
const (
	AggregateTypeOperation = "operation"
	AggregateTypeAccount   = "account"
)

// OutboxEvent represents an event to be published. It is written in the
// scope of the change it announces.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// BalanceChangedEvent is the payload of debited and credited events.
type BalanceChangedEvent struct {
	OperationID string `json:"operation_id"`
	AccountID   int64  `json:"account_id"`
	Amount      string `json:"amount"`
	Balance     string `json:"balance"`
	Version     int64  `json:"version"`
}

// TransferredEvent payload
type TransferredEvent struct {
	OperationID   string `json:"operation_id"`
	FromAccountID int64  `json:"from_account_id"`
	ToAccountID   int64  `json:"to_account_id"`
	Amount        string `json:"amount"`
}

// AccountCreatedEvent payload
type AccountCreatedEvent struct {
	AccountID int64  `json:"account_id"`
	Name      string `json:"name"`
	Currency  string `json:"currency"`
}

// StatusChangedEvent payload
type StatusChangedEvent struct {
	AccountID int64  `json:"account_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// Payload flattens the event into the generic outbox shape.
func (e BalanceChangedEvent) Payload() map[string]any {
	return map[string]any{
		"operation_id": e.OperationID,
		"account_id":   e.AccountID,
		"amount":       e.Amount,
		"balance":      e.Balance,
		"version":      e.Version,
	}
}

// Payload flattens the event into the generic outbox shape.
func (e TransferredEvent) Payload() map[string]any {
	return map[string]any{
		"operation_id":    e.OperationID,
		"from_account_id": e.FromAccountID,
		"to_account_id":   e.ToAccountID,
		"amount":          e.Amount,
	}
}

// Payload flattens the event into the generic outbox shape.
func (e AccountCreatedEvent) Payload() map[string]any {
	return map[string]any{
		"account_id": e.AccountID,
		"name":       e.Name,
		"currency":   e.Currency,
	}
}

// Payload flattens the event into the generic outbox shape.
func (e StatusChangedEvent) Payload() map[string]any {
	return map[string]any{
		"account_id": e.AccountID,
		"from":       e.From,
		"to":         e.To,
	}
}
