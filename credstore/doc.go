// Package credstore persists credential records: one row per registered
// email holding the password verifier and the verification flag.
//
// [SQLStore] works over any [dbx.DBTX] and speaks both the Postgres (pgx) and
// SQLite (modernc) dialects; [Open] connects and applies the embedded goose
// migrations. Each SQL mutation also appends a credential_events row (created,
// verified, verifier_changed) in the same transaction. [MemoryStore] serves
// tests and throwaway deployments.
//
// Records are never deleted here.
package credstore
