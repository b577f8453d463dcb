package library

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// Expected business conditions. Callers branch on these with errors.Is;
// anything else coming out of the store is a hard storage failure.
var (
	ErrDuplicate          = errors.New("record already exists")
	ErrNotFound           = errors.New("record not found")
	ErrAlreadyBorrowed    = errors.New("book already borrowed")
	ErrNoActiveLoan       = errors.New("no active loan")
	ErrHasActiveLoans     = errors.New("record has active loans")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNonCirculating     = errors.New("book is not for borrowing")
)

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure, so add operations can surface ErrDuplicate instead of a raw
// driver error.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
