package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidAccountName = errors.New("invalid account name")
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrAmountTooLarge     = errors.New("amount exceeds maximum allowed")

	ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")
)

// Validation constants
const (
	MaxAccountNameLength = 255
	MinAccountNameLength = 1
	MaxAmount            = "1000000000000" // 1 trillion
	AmountScale          = 2

	// MaxIdempotencyKeyLength matches idempotency_keys.key.
	MaxIdempotencyKeyLength = 255
)

var maxAmount = decimal.RequireFromString(MaxAmount)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "HKD": true, "PLN": true, "UAH": true,
}

// ValidateAccountName validates account name
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinAccountNameLength {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidAccountName)
	}

	if len(name) > MaxAccountNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidAccountName, MaxAccountNameLength)
	}

	return nil
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return fmt.Errorf("%w: %s is not a valid ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateAmount checks that amount is positive, has at most two decimal
// places and stays under the ceiling. Failures are rule violations.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewRuleViolation(ErrInvalidAmount, fmt.Sprintf("got %s", amount))
	}

	if !amount.Equal(amount.Truncate(AmountScale)) {
		return NewRuleViolation(ErrInvalidAmount, fmt.Sprintf("%s has more than %d decimal places", amount, AmountScale))
	}

	if amount.GreaterThan(maxAmount) {
		return NewRuleViolation(ErrInvalidAmount, fmt.Sprintf("%s: maximum amount is %s", ErrAmountTooLarge, MaxAmount))
	}

	return nil
}

// ValidateIdempotencyKey rejects keys the idempotency store cannot hold.
// An empty key is valid and means the operation is not idempotent.
func ValidateIdempotencyKey(key string) error {
	if len(key) > MaxIdempotencyKeyLength {
		return NewRuleViolation(ErrInvalidIdempotencyKey, fmt.Sprintf("key exceeds %d characters", MaxIdempotencyKeyLength))
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
