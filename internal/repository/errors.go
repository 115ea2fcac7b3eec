package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

var (
	// ErrDuplicateEmail is returned when an account email is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateQRCode is returned when a scan code collides with a stored one.
	ErrDuplicateQRCode = errors.New("qr code already assigned")
)

// postgresErrorCode extracts the SQLSTATE code from a lib/pq error.
func postgresErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return postgresErrorCode(err) == pgerrcode.UniqueViolation
}

// isMalformedID reports a value PostgreSQL refused to parse, such as a path
// id that is not a UUID. No row can match it.
func isMalformedID(err error) bool {
	return postgresErrorCode(err) == pgerrcode.InvalidTextRepresentation
}
