// Package stores persists pending verification records in Redis.
//
// Each record is a versioned binary blob with a TTL. Consume runs its
// acceptance check inside a WATCH/MULTI transaction and retries on contention,
// so a record is deleted at most once. Only code digests are stored.
//
// The package does not generate codes or decide outcomes; the caller supplies
// the acceptance check.
package stores
