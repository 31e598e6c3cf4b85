package dbpkg

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// Postgres error codes the repositories react to.
const (
	codeNumericValueOutOfRange = "22003"
	codeSerializationFailure   = "40001"
	codeDeadlockDetected       = "40P01"
)

// Constraint returns the name of the violated constraint, or "" if err is not a constraint violation.
func Constraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}

	return ""
}

// IsRetryable reports whether err aborted a transaction that could succeed when retried.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	switch string(pqErr.Code) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}

	return false
}

// IsNumericOverflow reports whether err is caused by a value not fitting its numeric column.
func IsNumericOverflow(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == codeNumericValueOutOfRange
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes s so it matches literally inside a LIKE/ILIKE pattern.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
