// Package user implements the user resource: input validation, the record codec
// and the five resource operations (create, get, list, update, delete).
//
// The package owns no storage. Operations run against a [Store], a capability
// interface offering single-key conditional writes:
//
//	type Store interface {
//	    PutIfAbsent(ctx context.Context, u User) error
//	    GetByKey(ctx context.Context, id string) (*User, error)
//	    ScanAll(ctx context.Context, limit int32) ([]User, error)
//	    UpdateIfExists(ctx context.Context, id string, m Mutation) (*User, error)
//	    DeleteIfExists(ctx context.Context, id string) error
//	}
//
// Every write is one conditional call, so concurrent creates with the same
// normalized email resolve to exactly one success and [ErrEmailTaken] for the
// rest. Updates and deletes are last-writer-wins; no version token is exposed.
//
// # Errors
//
//   - [*ValidationError] - payload failed field checks
//   - [ErrMissingID] - empty path id
//   - [ErrNoFieldsToUpdate] - update carried no recognized field
//   - [ErrNotFound] - no record with the id
//   - [ErrEmailTaken] - another record already holds the email
//   - [ErrAlreadyExists] - generated id collided with an existing record
package user
