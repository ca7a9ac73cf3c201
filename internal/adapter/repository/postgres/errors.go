package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/bankledger/internal/domain"
)

// PostgreSQL error codes the ledger reacts to.
const (
	pgErrSerializationFailure = "40001"
	pgErrDeadlock             = "40P01"
	pgErrUniqueViolation      = "23505"
	pgErrQueryCanceled        = "57014"
)

// translate maps driver errors onto the ledger's outcomes. Serialization
// failures, deadlocks and unique violations mean another scope won the race
// and become conflicts. Statement timeouts become system failures.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgErrSerializationFailure, pgErrDeadlock, pgErrUniqueViolation:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrConflict, err)
	case pgErrQueryCanceled:
		return domain.NewSystemError(op, fmt.Errorf("%w: %w", domain.ErrTimeout, err))
	default:
		return err
	}
}
