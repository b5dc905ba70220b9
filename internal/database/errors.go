// internal/database/errors.go
package database

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsUniqueViolation reports whether err was caused by a unique constraint.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// IsRowRejected reports whether the server refused a statement because of the
// data it carried, such as a value too long for its column. Connection,
// resource and shutdown failures are not row errors.
func IsRowRejected(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return !pgerrcode.IsConnectionException(pgErr.Code) &&
		!pgerrcode.IsInsufficientResources(pgErr.Code) &&
		!pgerrcode.IsOperatorIntervention(pgErr.Code)
}
