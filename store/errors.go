package store

import "errors"

var (
	// ErrContention is returned when a read-then-transact operation keeps losing
	// to concurrent writers after Config.MaxAttempts tries.
	ErrContention = errors.New("users: record changed concurrently")

	// ErrClaimMismatch is returned when an email claim is owned by another user
	// than the record being deleted. Claims only change hands inside the same
	// transactions that move the record's email, and ReleaseClaim never removes
	// a claim still in use, so this indicates an item edited outside Store.
	// The wrapped error names the user id and email.
	ErrClaimMismatch = errors.New("users: email claim held by another user")

	// errRecordChanged signals that the guarded user item no longer matches the
	// state read before the transaction.
	errRecordChanged = errors.New("users: record changed since read")
)
