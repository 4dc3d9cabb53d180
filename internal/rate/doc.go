// Package rate implements the fixed-window attempt limiter that guards login
// and registration.
//
// # Window semantics
//
// A bucket is created with count 1 on the first attempt and lives for one
// window. While the count is below the maximum each attempt increments it and
// is allowed; once the maximum is reached attempts are denied without touching
// the count. Reset is lazy: an expired bucket is replaced by the next attempt.
//
// Key prefixes:
//   - al:  login per identity
//   - ali: login per client IP
//   - ar:  registration per client IP
//
// # Stores
//
// [RedisStore] runs the check-and-increment as a single Lua script so it is
// atomic across processes sharing one Redis. [MemoryStore] serves single-process
// deployments and tests.
//
// # What this package must NOT do
//
//   - Decide which identities or addresses are limited. The flow layer picks keys.
//   - Be imported outside the chatgate module.
package rate
