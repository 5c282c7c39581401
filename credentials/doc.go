// Package credentials persists registered accounts.
//
// Two [Store] implementations are provided: [RedisStore], the default, and
// [PostgresStore] for deployments that keep accounts in a relational
// database. Both guarantee that Insert is an atomic check-and-insert on the
// email, so concurrent registrations of one address yield exactly one
// success and one [ErrDuplicateEmail].
//
// Emails are compared exactly as given. Records hold password hashes only.
package credentials
