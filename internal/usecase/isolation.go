package usecase

import (
	"fmt"
	"time"
)

// IsolationLevel is a transaction isolation the store must provide.
// There is no READ UNCOMMITTED.
type IsolationLevel int

const (
	ReadCommitted IsolationLevel = iota + 1
	RepeatableRead
	Serializable
)

func (l IsolationLevel) String() string {
	switch l {
	case ReadCommitted:
		return "READ COMMITTED"
	case RepeatableRead:
		return "REPEATABLE READ"
	case Serializable:
		return "SERIALIZABLE"
	default:
		return fmt.Sprintf("IsolationLevel(%d)", int(l))
	}
}

// TxOptions configures a scope.
type TxOptions struct {
	Isolation IsolationLevel
	ReadOnly  bool
}

// OperationKind groups operations that share an isolation level and timeout.
type OperationKind int

const (
	OpAccountWrite OperationKind = iota + 1
	OpAccountRead
	OpBalanceWrite
	OpTransfer
	OpReport
)

func (k OperationKind) String() string {
	switch k {
	case OpAccountWrite:
		return "account_write"
	case OpAccountRead:
		return "account_read"
	case OpBalanceWrite:
		return "balance_write"
	case OpTransfer:
		return "transfer"
	case OpReport:
		return "report"
	default:
		return fmt.Sprintf("OperationKind(%d)", int(k))
	}
}

// IsolationSelector maps an operation kind to its scope options. The table
// is fixed at construction; callers cannot ask for a different level.
type IsolationSelector struct {
	serializableTransfers bool
}

// NewIsolationSelector creates the selector. serializableTransfers escalates
// transfers from REPEATABLE READ to SERIALIZABLE.
func NewIsolationSelector(serializableTransfers bool) IsolationSelector {
	return IsolationSelector{serializableTransfers: serializableTransfers}
}

// Select returns the options for kind. Unknown kinds get the strictest setting.
func (s IsolationSelector) Select(kind OperationKind) TxOptions {
	switch kind {
	case OpAccountWrite:
		return TxOptions{Isolation: ReadCommitted}
	case OpAccountRead, OpReport:
		return TxOptions{Isolation: ReadCommitted, ReadOnly: true}
	case OpBalanceWrite:
		return TxOptions{Isolation: RepeatableRead}
	case OpTransfer:
		if s.serializableTransfers {
			return TxOptions{Isolation: Serializable}
		}
		return TxOptions{Isolation: RepeatableRead}
	default:
		return TxOptions{Isolation: Serializable}
	}
}

// Timeouts bounds how long a scope may stay open.
type Timeouts struct {
	Write    time.Duration
	Transfer time.Duration
	Read     time.Duration
}

// DefaultTimeouts returns 30s writes, 60s transfers and 5s reads.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Write:    DefaultWriteTimeout,
		Transfer: DefaultTransferTimeout,
		Read:     DefaultReadTimeout,
	}
}

// For returns the timeout of kind.
func (t Timeouts) For(kind OperationKind) time.Duration {
	switch kind {
	case OpTransfer:
		return t.Transfer
	case OpAccountRead, OpReport:
		return t.Read
	default:
		return t.Write
	}
}
