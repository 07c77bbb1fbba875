package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"
)

// Failure classifies a store error for callers that need to decide on retries.
type Failure int

const (
	FailureOther Failure = iota
	// FailureConflict covers serialization failures, deadlocks, lock timeouts and deadline expiry.
	FailureConflict
	// FailureUnavailable means the store could not be reached.
	FailureUnavailable
	// FailureForeignKey is a referential integrity violation.
	FailureForeignKey
	// FailureUniqueViolation is a unique constraint violation.
	FailureUniqueViolation
)

// Classify maps driver errors onto a Failure using PostgreSQL SQLSTATE codes.
func Classify(err error) Failure {
	if err == nil {
		return FailureOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureConflict
	}
	if errors.Is(err, driver.ErrBadConn) {
		return FailureUnavailable
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03", "57014":
			return FailureConflict
		case "23503":
			return FailureForeignKey
		case "23505":
			return FailureUniqueViolation
		}
		switch pqErr.Code.Class() {
		case "08", "53":
			return FailureUnavailable
		case "57":
			if strings.HasPrefix(string(pqErr.Code), "57P") {
				return FailureUnavailable
			}
		}
		return FailureOther
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureUnavailable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return FailureUnavailable
	}
	return FailureOther
}
