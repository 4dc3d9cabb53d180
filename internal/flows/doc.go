// Package flows implements the authentication protocol as plain functions.
//
// Each Run* function (RunRegister, RunLogin, RunVerifyChallenge,
// RunValidateSession, RunLogout, ...) takes a dependency struct built by the
// Engine and touches nothing outside it. The credential store, limiters,
// challenge and session stores, mailer, audit and metrics hooks are all owned
// by the Engine.
//
// This package must not import chatgate; errors and events are passed in
// through [Errors] and [Events].
package flows
