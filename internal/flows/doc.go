// Package flows contains the step functions behind every Engine operation.
//
// Each Run* function takes a typed dependency struct built by the engine and
// returns its result without touching anything outside those dependencies.
// Metric ids, audit event names and error values are passed in, so flows
// never import the root package.
//
// # What this package must NOT do
//
//   - Hold state between calls. Flow step order is enforced by the caller.
//   - Return a verification code. Codes only leave through Deliver.
//   - Import the root package.
package flows
