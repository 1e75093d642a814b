// Package store provides the DynamoDB implementation of user.Store.
//
// Users live in a table keyed by id. DynamoDB offers no secondary unique
// index, so email uniqueness is enforced with a claim table: every user owns
// one claim item whose partition key is a hash of the normalized email.
// Claims are written and removed in the same TransactWriteItems call as the
// user item, so a record and its claim appear and disappear together.
//
// # Operations
//
//   - [Store.PutIfAbsent] - claim put (attribute_not_exists) + user put, one transaction
//   - [Store.GetByKey] - consistent GetItem
//   - [Store.ScanAll] - single bounded Scan, no pagination token
//   - [Store.UpdateIfExists] - UpdateItem guarded by attribute_exists(id); an email
//     change swaps the claim in one transaction
//   - [Store.DeleteIfExists] - user delete + claim delete, one transaction
//
// # Tables
//
// Use [DefaultConfig] for the default table names:
//
//	cfg := store.DefaultConfig()
//	cfg.UsersTable = "users-prod"
//	s := store.New(client, cfg)
//
// The users table needs a string hash key "id". The claim table needs a string
// hash key "pk" and a string range key "sk".
//
// # Errors
//
// Precondition failures are reported with the user package sentinels
// (user.ErrNotFound, user.ErrEmailTaken, user.ErrAlreadyExists). The package
// adds:
//
//   - [ErrContention] - the record kept changing between read and write
//   - [ErrClaimMismatch] - a claim is held by a different user than expected
package store
