package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// IdempotencyRecord is persisted in the same scope as the operation it
// guards. A resubmission with the same key and fingerprint replays the
// operation's entries instead of mutating again.
type IdempotencyRecord struct {
	Key         string
	Operation   string
	Fingerprint string
	OperationID string
	CreatedAt   time.Time
}

// Fingerprint identifies the parameters of a request so that a reused key
// with different parameters can be told apart from a retry.
func Fingerprint(operation string, from, to int64, amount decimal.Decimal) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%s", operation, from, to, amount.StringFixed(2))))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether the record was written for the same request.
func (r *IdempotencyRecord) Matches(operation, fingerprint string) bool {
	return r.Operation == operation && r.Fingerprint == fingerprint
}
