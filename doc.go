// Package apartments is the authentication core of the Apartments site:
// password login, registration confirmed by an emailed one-time code,
// password reset by code, logout and session restore.
//
// An [Engine] is built once through [Builder] and shared. Its methods are
// safe for concurrent use. A [Flow] wraps the engine for one run of a
// multi-step form and enforces step order.
//
// # Architecture boundaries
//
// The package exposes [Engine], [Flow], [Builder], [Config], the public value
// types ([Account], [SessionUser], [Pending], [Result]) and sentinel errors.
// Step orchestration lives in internal/flows. Storage lives in credentials,
// session and internal/stores. Code delivery is a [delivery.Deliverer].
//
// # What this package must NOT do
//
//   - Return or log a verification code anywhere except through the deliverer.
//   - Store or log a raw password.
//   - Trust a client-side expiry signal. Only the engine clock decides expiry.
package apartments
