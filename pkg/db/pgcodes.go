package db

import (
	"strings"

	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
)

// SQLSTATE codes the ledger reacts to.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// IsRetryable reports whether the transaction can be rerun from scratch.
// SQLite's busy error counts so the dev driver behaves like postgres under
// concurrent settlement.
func IsRetryable(err error) bool {
	switch sqlState(err) {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return true
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// IsUniqueViolation reports whether err is a unique constraint failure,
// optionally on the named constraint. Postgres errors are matched on the
// constraint name; SQLite only reports columns, so the name is searched in
// the message instead.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if pg := pkgerrors.Diagnose(err).Postgres; pg != nil {
		return pg.Code == pgUniqueViolation && (constraint == "" || pg.Constraint == constraint)
	}
	msg := err.Error()
	if constraint != "" {
		return strings.Contains(msg, constraint)
	}
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func sqlState(err error) string {
	if pg := pkgerrors.Diagnose(err).Postgres; pg != nil {
		return pg.Code
	}
	return ""
}
