package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

type pgxPool interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	pool pgxPool
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return newTxManagerWithPool(pool)
}

func newTxManagerWithPool(pool pgxPool) *TxManager {
	return &TxManager{pool: pool}
}

// Begin starts a transaction at the requested isolation level.
func (m *TxManager) Begin(ctx context.Context, opts usecase.TxOptions) (usecase.Transaction, error) {
	tx, err := m.pool.BeginTx(ctx, txOptions(opts))
	if err != nil {
		return nil, translate("begin", err)
	}

	return &Tx{tx: tx}, nil
}

func txOptions(opts usecase.TxOptions) pgx.TxOptions {
	var o pgx.TxOptions
	switch opts.Isolation {
	case usecase.ReadCommitted:
		o.IsoLevel = pgx.ReadCommitted
	case usecase.RepeatableRead:
		o.IsoLevel = pgx.RepeatableRead
	default:
		o.IsoLevel = pgx.Serializable
	}
	if opts.ReadOnly {
		o.AccessMode = pgx.ReadOnly
	} else {
		o.AccessMode = pgx.ReadWrite
	}
	return o
}

// Tx wraps a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// Commit commits the transaction. Serialization failures reported at
// commit come back as conflicts.
func (t *Tx) Commit(ctx context.Context) error {
	return translate("commit", t.tx.Commit(ctx))
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

func queriesFor(tx usecase.Transaction) (*generated.Queries, error) {
	pgTx, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("postgres: unexpected transaction type %T", tx)
	}
	return generated.New(pgTx.tx), nil
}
