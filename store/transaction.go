package store

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/users/user"
)

const (
	reasonConditionalCheckFailed = "ConditionalCheckFailed"
	reasonTransactionConflict    = "TransactionConflict"
)

// failedConditionIndex returns the index of the first item cancelled by a
// failed condition, or -1.
func failedConditionIndex(err error) int {
	var txErr *types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return -1
	}
	for i, reason := range txErr.CancellationReasons {
		if reason.Code != nil && *reason.Code == reasonConditionalCheckFailed {
			return i
		}
	}
	return -1
}

// isTransactionConflict reports whether a transaction was cancelled only
// because another in-flight transaction touched one of its items.
func isTransactionConflict(err error) bool {
	var txErr *types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return false
	}
	conflict := false
	for _, reason := range txErr.CancellationReasons {
		if reason.Code == nil {
			continue
		}
		switch *reason.Code {
		case reasonTransactionConflict:
			conflict = true
		case reasonConditionalCheckFailed:
			return false
		}
	}
	return conflict
}

// mapCreateTransactionError maps DynamoDB transaction errors for PutIfAbsent.
// claimIndex is the index of the claim put, userIndex the index of the user put.
func mapCreateTransactionError(err error, claimIndex, userIndex int) error {
	if err == nil {
		return nil
	}

	switch failedConditionIndex(err) {
	case claimIndex:
		return user.ErrEmailTaken
	case userIndex:
		return user.ErrAlreadyExists
	}
	return err
}

// mapUpdateTransactionError maps DynamoDB transaction errors for an email change.
// userIndex is the index of the guarded user update, claimIndex the new claim put.
func mapUpdateTransactionError(err error, userIndex, claimIndex int) error {
	if err == nil {
		return nil
	}

	switch failedConditionIndex(err) {
	case userIndex:
		return errRecordChanged
	case claimIndex:
		return user.ErrEmailTaken
	}
	return err
}

// mapDeleteTransactionError maps DynamoDB transaction errors for DeleteIfExists.
// userIndex is the index of the user delete, claimIndex the claim delete.
func mapDeleteTransactionError(err error, userIndex, claimIndex int) error {
	if err == nil {
		return nil
	}

	switch failedConditionIndex(err) {
	case userIndex:
		return errRecordChanged
	case claimIndex:
		return ErrClaimMismatch
	}
	return err
}
