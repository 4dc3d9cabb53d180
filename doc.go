// Package chatgate is the authentication and session core of a login-gated
// chat service.
//
// Authentication is two-step: [Engine.Login] checks the password and mails a
// one-time code, [Engine.VerifyChallenge] consumes that code and returns an
// opaque session token. [Engine.ValidateSession] resolves a token on every
// request and slides its idle timeout. Attempts are counted by a fixed-window
// limiter before any credential check.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// chatgate is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy, and the collaborator interfaces ([CredentialStore],
// [MailSender], [Responder]). Flow orchestration, challenge storage, rate
// limiting, audit dispatch, and metrics live under internal/ and are never
// exported.
//
// # What this package must NOT do
//
//   - Return one-time codes or password material to callers.
//   - Reveal through its errors which credential check failed.
//   - Import any sub-package that re-imports chatgate (no import cycles).
package chatgate
