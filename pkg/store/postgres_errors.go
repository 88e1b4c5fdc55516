package store

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// classify maps a pgx error onto the store sentinels and prefixes it with op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation:
			return &DuplicateKeyError{Op: op, Constraint: pgErr.ConstraintName}
		case pgErr.Code == pgForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrNotFound, pgErr.ConstraintName)
		case isUnavailableClass(pgErr.Code):
			return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if isConnectivityError(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUnavailableClass covers connection exceptions (08), insufficient resources (53)
// and operator intervention such as admin shutdown (57P).
func isUnavailableClass(code string) bool {
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "53") || strings.HasPrefix(code, "57P")
}

func isConnectivityError(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
