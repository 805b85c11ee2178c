// Package pgerr classifies driver failures. Failures where retrying the whole
// operation is safe are wrapped in errs.TransientError; everything else is
// returned unchanged.
package pgerr

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"orders/internal/pkg/errs"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
	lockNotAvailable     = "55P03"
	adminShutdown        = "57P01"
	cannotConnectNow     = "57P03"
	connectionException  = "08"
)

// Translate wraps err in errs.TransientError when it is a timeout, a cancelled
// context, a lost connection, a serialization failure or a deadlock.
func Translate(operation string, err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return errs.NewTransientError(operation, err)
	}
	return err
}

func IsTransient(err error) bool {
	if errors.Is(err, errs.ErrTransient) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case serializationFailure, deadlockDetected, lockNotAvailable, adminShutdown, cannotConnectNow:
			return true
		}
		return strings.HasPrefix(pgErr.Code, connectionException)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	return pgconn.Timeout(err)
}
