// Package session provides Redis-backed persistence of the signed-in user for
// a client slot, plus the compact binary encoding of that record.
//
// # Binary encoding
//
// Records are stored as a versioned binary blob. Version 1 predates the
// verified flag and decodes as verified. New versions append fields and never
// reinterpret old ones.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [User] model. It does
// not check credentials or issue codes; those belong to the Engine.
//
// # What this package must NOT do
//
//   - Import the root package (no upward imports).
//   - Store passwords or password hashes in [User] fields.
package session
