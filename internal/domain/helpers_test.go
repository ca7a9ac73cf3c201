package domain

import "github.com/shopspring/decimal"

func mustAmount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
