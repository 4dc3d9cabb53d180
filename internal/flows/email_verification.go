package flows

import (
	"context"
	"errors"
	"net/url"

	"github.com/MrEthical07/chatgate/credstore"
	"github.com/MrEthical07/chatgate/jwt"
)

// VerificationDeps captures the email verification link flows. Limiter is
// keyed by email and throttles resends.
type VerificationDeps struct {
	Common

	Credentials CredentialStore
	Tokens      LinkTokens
	Mailer      Mailer
	Limiter     Limiter
	LinkBaseURL string
}

// BuildVerificationLink appends token to base as the "token" query parameter.
func BuildVerificationLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// RunSendVerification issues a signed link for identity and mails it.
func RunSendVerification(ctx context.Context, identity string, deps VerificationDeps) error {
	deps.fill()
	if deps.Tokens == nil || deps.Mailer == nil {
		return deps.Errors.EngineNotReady
	}

	token, err := deps.Tokens.Issue(identity, jwt.PurposeEmailVerification, deps.Now())
	if err != nil {
		return unavailable(&deps.Common, err)
	}
	link, err := BuildVerificationLink(deps.LinkBaseURL, token)
	if err != nil {
		return unavailable(&deps.Common, err)
	}
	if err := deps.Mailer.SendVerification(ctx, identity, link); err != nil {
		deps.MetricInc(deps.Metrics.MailFailure)
		return unavailable(&deps.Common, err)
	}

	deps.MetricInc(deps.Metrics.VerificationSent)
	deps.EmitAudit(ctx, deps.Events.VerificationSent, true, identity, "", nil, nil)
	return nil
}

// RunConfirmEmail marks the identity named by a valid link token verified.
// Confirming an already verified identity succeeds.
func RunConfirmEmail(ctx context.Context, token string, deps VerificationDeps) (string, error) {
	deps.fill()
	if deps.Tokens == nil || deps.Credentials == nil {
		return "", deps.Errors.EngineNotReady
	}
	if token == "" {
		return "", deps.Errors.InvalidVerificationToken
	}

	claims, err := deps.Tokens.Parse(token, jwt.PurposeEmailVerification, deps.Now())
	if err != nil {
		deps.MetricInc(deps.Metrics.VerificationFailure)
		deps.EmitAudit(ctx, deps.Events.VerificationConfirm, false, "", "", deps.Errors.InvalidVerificationToken, nil)
		return "", deps.Errors.InvalidVerificationToken
	}

	identity := NormalizeEmail(claims.Email)
	if err := deps.Credentials.MarkVerified(ctx, identity); err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			deps.MetricInc(deps.Metrics.VerificationFailure)
			return "", deps.Errors.InvalidVerificationToken
		}
		deps.Warn(ctx, "mark verified failed", "error", err)
		return "", unavailable(&deps.Common, err)
	}

	deps.MetricInc(deps.Metrics.VerificationSuccess)
	deps.EmitAudit(ctx, deps.Events.VerificationConfirm, true, identity, "", nil, nil)
	return identity, nil
}

// RunResendVerification mails a new link when email belongs to an unverified
// record. Unknown and already verified emails succeed silently.
func RunResendVerification(ctx context.Context, email string, deps VerificationDeps) error {
	deps.fill()
	if deps.Credentials == nil {
		return deps.Errors.EngineNotReady
	}

	identity := NormalizeEmail(email)
	if !ValidEmail(identity) {
		return deps.Errors.InvalidRequest
	}
	if err := consume(ctx, &deps.Common, deps.Limiter, "resend_verification", identity); err != nil {
		return err
	}

	rec, err := deps.Credentials.Find(ctx, identity)
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return nil
		}
		return unavailable(&deps.Common, err)
	}
	if rec.Verified {
		return nil
	}
	return RunSendVerification(ctx, identity, deps)
}
