// Package internal contains helpers private to the module: random handle ids
// and numeric code generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - clienttoken: signed client-slot tokens for the HTTP surface
//   - config: environment configuration for the server binary
//   - app: server wiring and graceful shutdown
//   - flows: flow orchestrators for each Engine operation
//   - httpapi: JSON HTTP surface over the Engine
//   - logging: JSON slog setup
//   - otp: one-time code issuance and verification
//   - stores: Redis store for pending verification records
package internal
