// Package session provides Redis-backed session persistence for chatgate.
//
// # Storage
//
// A session is addressed by the SHA-256 of its bearer token, so the raw token
// never appears as a Redis key. The record itself is sealed with the cryptox
// envelope before it is written. The Redis TTL is the idle timeout and is
// renewed by [Store.Touch]; a per-identity set indexes live sessions for
// logout-all.
//
// # Architecture boundaries
//
// This package owns the [Store] and the [Session] model. It does NOT decide
// whether a session is still valid: idle and absolute limits are enforced by
// the Engine against its own clock.
//
// # What this package must NOT do
//
//   - Import chatgate (no upward imports).
//   - Store raw tokens.
package session
