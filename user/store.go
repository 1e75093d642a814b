package user

import "context"

// Store is the storage capability the resource operations depend on.
// Implementations report precondition failures with the package sentinels.
type Store interface {
	// PutIfAbsent writes u only if no record holds u.Email and u.ID is unused.
	// Returns ErrEmailTaken or ErrAlreadyExists otherwise.
	PutIfAbsent(ctx context.Context, u User) error

	// GetByKey returns the record with id or ErrNotFound.
	GetByKey(ctx context.Context, id string) (*User, error)

	// ScanAll returns up to limit records in no particular order.
	ScanAll(ctx context.Context, limit int32) ([]User, error)

	// UpdateIfExists applies m to the record with id and returns the stored result.
	// Returns ErrNotFound if the record is absent, ErrEmailTaken if m moves the
	// record onto an email held by another record.
	UpdateIfExists(ctx context.Context, id string, m Mutation) (*User, error)

	// DeleteIfExists removes the record with id or returns ErrNotFound.
	DeleteIfExists(ctx context.Context, id string) error
}
