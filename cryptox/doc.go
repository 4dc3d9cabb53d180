// Package cryptox holds the cryptographic primitives used across chatgate:
// random tokens and one-time codes, the authenticated-encryption envelope used
// to protect records at rest, key derivation, and redaction of sensitive terms
// from error text before it leaves the process.
//
// # Architecture boundaries
//
// Every function here is stateless apart from the process-wide entropy source.
// Callers own keys; this package never stores or logs them.
//
// # What this package must NOT do
//
//   - Import chatgate or any sibling package.
//   - Derive tokens or nonces from counters, clocks, or any predictable input.
//   - Return partially decrypted plaintext when authentication fails.
package cryptox
