// Package jwt issues and verifies signed, purpose-scoped link tokens such as
// the email verification link sent after registration.
package jwt
