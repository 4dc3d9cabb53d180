// Package stores provides the Redis-backed store for pending one-time-code
// challenges.
//
// # Design
//
// Each challenge is a versioned, binary-encoded record with a TTL equal to its
// remaining lifetime. Writing a challenge replaces the previous one for the
// same identity. Verify runs as a WATCH/MULTI optimistic transaction retried on
// contention, so concurrent submissions for one identity are serialized: at
// most one correct code consumes a challenge and every wrong one is counted.
// Code hashes are compared in constant time.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for challenges. It
// does NOT generate codes, enforce rate limits, or decide what the caller is
// told. Those belong to internal/flows.
//
// # What this package must NOT do
//
//   - Import chatgate or any sibling internal package.
//   - Store or log plaintext codes.
package stores
