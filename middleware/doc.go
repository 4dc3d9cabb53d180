// Package middleware adapts chatgate.Engine session validation to net/http.
//
// # Handlers
//
//   - [Guard] resolves the session token from the Authorization header or the
//     session cookie and rejects requests without a live session.
//   - [RequestContext] assigns X-Request-ID and records the client IP.
//   - [Throttle] applies a per-client token bucket ahead of the engine's own
//     attempt limiters.
//
// Cookie-authenticated unsafe requests must carry X-CSRF-Token equal to the
// csrf_token cookie.
//
// Every error body is {"error": "..."} with a fixed public message passed
// through cryptox.Redact.
package middleware
