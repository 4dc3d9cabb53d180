package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/chatgate"
	"github.com/MrEthical07/chatgate/cryptox"
	"github.com/MrEthical07/chatgate/middleware"
)

// Public messages. None of them says which check failed.
const (
	msgInvalidRequest      = "Invalid request"
	msgAlreadyRegistered   = "Email already registered"
	msgInvalidLogin        = "Invalid login details"
	msgUnverified          = "Please verify your email first"
	msgTooManyAttempts     = middleware.MsgTooManyRequests
	msgNoPendingChallenge  = "No pending verification, please log in again"
	msgInvalidCode         = "Invalid MFA code"
	msgChallengeLocked     = "Too many incorrect codes, please log in again"
	msgSessionExpired      = middleware.MsgSessionExpired
	msgInvalidLink         = "Invalid or expired verification link"
	msgReuse               = "New passphrase must differ from the current one"
	msgMessageRequired     = "Message is required"
	msgChatUnavailable     = "Chat service is unavailable, please try again later"
	msgInternal            = middleware.MsgInternal
	msgRegistered          = "Registration successful. Please check your email for verification."
	msgRegisteredNoMail    = "Registration successful. Request a new verification email to continue."
	msgRegisteredVerified  = "Registration successful. You can log in now."
	msgCodeSent            = "MFA code sent to your email"
	msgLoginSuccessful     = "Login successful"
	msgLoggedOut           = "Logged out"
	msgEmailVerified       = "Email verified. You can log in now."
	msgVerificationResent  = "If the email is registered and unverified, a new verification link has been sent."
	msgPassphraseChanged   = "Passphrase changed. Other devices have been signed out."
	msgHealthy             = "ok"
	msgDependencyUnhealthy = "unavailable"
)

// errorResponse maps an engine error to a status and a fixed public message.
func errorResponse(err error) (int, string) {
	var policyErr *chatgate.PasswordPolicyError
	switch {
	case errors.As(err, &policyErr):
		return http.StatusBadRequest, policyErr.Message()
	case errors.Is(err, chatgate.ErrInvalidRequest):
		return http.StatusBadRequest, msgInvalidRequest
	case errors.Is(err, chatgate.ErrAlreadyRegistered):
		return http.StatusBadRequest, msgAlreadyRegistered
	case errors.Is(err, chatgate.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidLogin
	case errors.Is(err, chatgate.ErrEmailUnverified):
		return http.StatusUnauthorized, msgUnverified
	case errors.Is(err, chatgate.ErrRateLimited):
		return http.StatusTooManyRequests, msgTooManyAttempts
	case errors.Is(err, chatgate.ErrNoPendingChallenge):
		return http.StatusUnauthorized, msgNoPendingChallenge
	case errors.Is(err, chatgate.ErrInvalidCode):
		return http.StatusUnauthorized, msgInvalidCode
	case errors.Is(err, chatgate.ErrChallengeLocked):
		return http.StatusUnauthorized, msgChallengeLocked
	case errors.Is(err, chatgate.ErrSessionExpired):
		return http.StatusUnauthorized, msgSessionExpired
	case errors.Is(err, chatgate.ErrInvalidVerificationToken):
		return http.StatusBadRequest, msgInvalidLink
	case errors.Is(err, chatgate.ErrPasswordReuse):
		return http.StatusBadRequest, msgReuse
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func (s *Server) writeEngineError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status, msg := errorResponse(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed",
			"op", op,
			"error", cryptox.Redact(err.Error()),
			"request_id", chatgate.RequestIDFromContext(ctx),
		)
	}
	middleware.WriteError(w, status, msg)
}
