package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/chatgate/credstore"
	"github.com/MrEthical07/chatgate/password"
	"github.com/MrEthical07/chatgate/session"
)

// PasswordChangeDeps captures the authenticated password change.
type PasswordChangeDeps struct {
	Common

	Session     SessionDeps
	Credentials CredentialStore
	Hasher      Hasher
	// Limiter caps current-password guesses per identity.
	Limiter Limiter
}

// RunChangePassword replaces the verifier of the session's identity after
// checking the current password and the policy, then revokes every other
// session of that identity.
func RunChangePassword(ctx context.Context, token, oldPassword, newPassword string, deps PasswordChangeDeps) error {
	deps.fill()
	if deps.Credentials == nil || deps.Hasher == nil || deps.Limiter == nil {
		return deps.Errors.EngineNotReady
	}

	sess, err := RunValidateSession(ctx, token, deps.Session)
	if err != nil {
		return err
	}
	identity := sess.Identity

	fail := func(err error, reason string) error {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeFailure, false, identity, session.ID(token), err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return err
	}

	if oldPassword == "" || newPassword == "" {
		return fail(deps.Errors.InvalidRequest, "missing_field")
	}
	if err := consume(ctx, &deps.Common, deps.Limiter, "password_change", identity); err != nil {
		if errors.Is(err, deps.Errors.RateLimited) {
			return fail(err, "rate_limited")
		}
		return err
	}

	rec, err := deps.Credentials.Find(ctx, identity)
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return fail(deps.Errors.InvalidCredentials, "unknown_identity")
		}
		return unavailable(&deps.Common, err)
	}

	ok, err := deps.Hasher.Verify(oldPassword, rec.Verifier)
	if err != nil || !ok {
		return fail(deps.Errors.InvalidCredentials, "invalid_old")
	}
	if oldPassword == newPassword {
		return fail(deps.Errors.PasswordReuse, "reuse")
	}
	if res := password.Validate(newPassword); !res.Valid {
		return fail(deps.Errors.PasswordPolicy(res.Reason), res.Reason.String())
	}

	verifier, err := deps.Hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return fail(deps.Errors.InvalidRequest, "too_long")
		}
		return unavailable(&deps.Common, err)
	}
	if err := deps.Credentials.UpdateVerifier(ctx, identity, verifier); err != nil {
		deps.Warn(ctx, "verifier update failed", "error", err)
		return unavailable(&deps.Common, err)
	}

	if _, err := deps.Session.Sessions.DeleteAllForIdentity(ctx, identity, token); err != nil {
		deps.Warn(ctx, "revoking other sessions failed", "error", err)
	}

	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordChangeSuccess, true, identity, session.ID(token), nil, nil)
	return nil
}
