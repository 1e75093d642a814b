package user

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("users: user not found")

	// ErrEmailTaken is returned when another record already holds the normalized email.
	ErrEmailTaken = errors.New("users: email already exists")

	// ErrAlreadyExists is returned when a record with the generated id already exists.
	ErrAlreadyExists = errors.New("users: user already exists")

	// ErrMissingID is returned when an operation is called without an id.
	ErrMissingID = errors.New("users: missing user id")

	// ErrNoFieldsToUpdate is returned when an update payload has nothing to change.
	ErrNoFieldsToUpdate = errors.New("users: no valid fields to update")
)

// ValidationError carries every field violation found in a payload.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "users: validation failed: " + strings.Join(e.Errors, "; ")
}
