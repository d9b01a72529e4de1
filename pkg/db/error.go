package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrStorageUnavailable marks failures of the backing store itself (lost
// connection, timeout, server shutdown) as opposed to business rule violations.
var ErrStorageUnavailable = errors.New("storage_unavailable")

type storageError struct {
	cause error
}

func (e *storageError) Error() string {
	return "storage unavailable: " + e.cause.Error()
}

func (e *storageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.cause}
}

// Classify wraps infrastructure failures so that errors.Is(err, ErrStorageUnavailable)
// holds. Any other error, including domain sentinels, is returned unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	if isUnavailable(err) {
		return &storageError{cause: err}
	}
	return err
}

func isUnavailable(err error) bool {
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return unavailableSQLState(pgErr.Code)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return unavailableSQLState(string(pqErr.Code))
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// Class 08 is connection exception; 57P01..57P03 are admin/crash shutdown
// and cannot-connect-now; 53300 is too_many_connections.
func unavailableSQLState(code string) bool {
	if strings.HasPrefix(code, "08") {
		return true
	}
	switch code {
	case "57P01", "57P02", "57P03", "53300":
		return true
	}
	return false
}

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}
