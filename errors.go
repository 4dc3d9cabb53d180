package chatgate

import (
	"errors"

	"github.com/MrEthical07/chatgate/cryptox"
	"github.com/MrEthical07/chatgate/password"
)

var (
	// ErrWeakPassword is matched by every *PasswordPolicyError.
	ErrWeakPassword = errors.New("password policy violation")
	// ErrAlreadyRegistered is returned when the email already has a credential record.
	ErrAlreadyRegistered = errors.New("email already registered")
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRateLimited is returned when an attempt bucket is exhausted.
	ErrRateLimited = errors.New("too many attempts")
	// ErrNoPendingChallenge is returned when no live, unused challenge exists.
	ErrNoPendingChallenge = errors.New("no pending challenge")
	// ErrInvalidCode is returned for a one-time code mismatch that did not lock the challenge.
	ErrInvalidCode = errors.New("invalid one-time code")
	// ErrChallengeLocked is returned by the mismatch that exhausts the challenge.
	ErrChallengeLocked = errors.New("challenge locked")
	// ErrSessionExpired is returned for unknown, revoked, and idle sessions.
	ErrSessionExpired = errors.New("session expired")
	// ErrAuthenticationFailure is returned when sealed data fails to open.
	ErrAuthenticationFailure = cryptox.ErrAuthenticationFailure
	// ErrEmailUnverified is returned by Login when verification is required and missing.
	ErrEmailUnverified = errors.New("email not verified")
	// ErrInvalidVerificationToken is returned for bad, expired, or foreign verification links.
	ErrInvalidVerificationToken = errors.New("invalid verification link")
	// ErrPasswordReuse is returned when a new password equals the current one.
	ErrPasswordReuse = errors.New("new password must differ from current password")
	// ErrInvalidRequest is returned for malformed input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnavailable wraps collaborator failures.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrEngineNotReady is returned by methods on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// PasswordPolicyError reports which policy rule rejected a password.
type PasswordPolicyError struct {
	Reason password.Reason
}

func (e *PasswordPolicyError) Error() string {
	return "password policy violation: " + e.Reason.String()
}

// Is makes errors.Is(err, ErrWeakPassword) hold.
func (e *PasswordPolicyError) Is(target error) bool {
	return target == ErrWeakPassword
}

// Message is the user-facing explanation of the failed rule.
func (e *PasswordPolicyError) Message() string {
	return e.Reason.Message()
}
