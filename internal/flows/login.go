package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/chatgate/credstore"
	"github.com/MrEthical07/chatgate/cryptox"
	"github.com/MrEthical07/chatgate/internal/stores"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Identity  string
	ExpiresAt time.Time
}

// LoginDeps captures the first login step. Limiter is keyed by email and
// required; IPLimiter is keyed by client IP and optional.
type LoginDeps struct {
	Common

	Credentials CredentialStore
	Hasher      Hasher
	Limiter     Limiter
	IPLimiter   Limiter
	Challenges  ChallengeStore
	Mailer      Mailer

	RequireVerified bool
	UpgradeOnLogin  bool
	CodeDigits      int
	ChallengeTTL    time.Duration

	GenerateCode func(digits int) (string, error)
}

// RunLogin checks the attempt limiters, verifies the password, and replaces
// the identity's pending challenge with a fresh code sent through the mailer.
func RunLogin(ctx context.Context, email, pw string, deps LoginDeps) (*LoginResult, error) {
	deps.fill()
	if deps.Credentials == nil || deps.Hasher == nil || deps.Limiter == nil ||
		deps.Challenges == nil || deps.Mailer == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.GenerateCode == nil {
		deps.GenerateCode = cryptox.GenerateCode
	}

	identity := NormalizeEmail(email)
	if identity == "" {
		return nil, deps.Errors.InvalidRequest
	}

	if err := consume(ctx, &deps.Common, deps.IPLimiter, "login_ip", deps.ClientIP(ctx)); err != nil {
		return nil, loginLimited(err, &deps)
	}
	if err := consume(ctx, &deps.Common, deps.Limiter, "login", identity); err != nil {
		return nil, loginLimited(err, &deps)
	}

	if pw == "" {
		deps.Hasher.VerifyDummy(pw)
		return nil, loginFailure(ctx, identity, "empty_password", &deps)
	}

	rec, err := deps.Credentials.Find(ctx, identity)
	if err != nil {
		if !errors.Is(err, credstore.ErrNotFound) {
			deps.Warn(ctx, "credential lookup failed", "error", err)
			return nil, unavailable(&deps.Common, err)
		}
		deps.Hasher.VerifyDummy(pw)
		return nil, loginFailure(ctx, identity, "unknown_identity", &deps)
	}

	ok, err := deps.Hasher.Verify(pw, rec.Verifier)
	if err != nil || !ok {
		if err != nil {
			deps.Warn(ctx, "stored verifier rejected", "error", err)
		}
		return nil, loginFailure(ctx, identity, "password_mismatch", &deps)
	}

	if deps.RequireVerified && !rec.Verified {
		deps.MetricInc(deps.Metrics.LoginUnverified)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, identity, "", deps.Errors.EmailUnverified, func() map[string]string {
			return map[string]string{"reason": "pending_verification"}
		})
		return nil, deps.Errors.EmailUnverified
	}

	if deps.UpgradeOnLogin {
		if needsUpgrade, err := deps.Hasher.NeedsUpgrade(rec.Verifier); err == nil && needsUpgrade {
			if upgraded, err := deps.Hasher.Hash(pw); err == nil {
				if err := deps.Credentials.UpdateVerifier(ctx, identity, upgraded); err != nil {
					deps.Warn(ctx, "verifier upgrade update failed", "error", err)
				}
			} else {
				deps.Warn(ctx, "verifier upgrade generation failed", "error", err)
			}
		}
	}
	pw = ""

	code, err := deps.GenerateCode(deps.CodeDigits)
	if err != nil {
		return nil, unavailable(&deps.Common, err)
	}

	now := deps.Now()
	challenge := &stores.Challenge{
		Identity:  identity,
		CodeHash:  cryptox.HashSecret(code),
		IssuedAt:  now,
		ExpiresAt: now.Add(deps.ChallengeTTL),
	}
	if err := deps.Challenges.Save(ctx, challenge); err != nil {
		deps.Warn(ctx, "challenge save failed", "error", err)
		return nil, unavailable(&deps.Common, err)
	}

	if err := deps.Mailer.SendCode(ctx, identity, code); err != nil {
		deps.MetricInc(deps.Metrics.MailFailure)
		deps.Warn(ctx, "code delivery failed", "error", err)
		return nil, unavailable(&deps.Common, err)
	}

	deps.MetricInc(deps.Metrics.LoginChallengeIssued)
	deps.EmitAudit(ctx, deps.Events.LoginChallengeIssued, true, identity, "", nil, nil)
	return &LoginResult{Identity: identity, ExpiresAt: challenge.ExpiresAt}, nil
}

func loginLimited(err error, deps *LoginDeps) error {
	if errors.Is(err, deps.Errors.RateLimited) {
		deps.MetricInc(deps.Metrics.LoginRateLimited)
	}
	return err
}

func loginFailure(ctx context.Context, identity, reason string, deps *LoginDeps) error {
	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, deps.Events.LoginFailure, false, identity, "", deps.Errors.InvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return deps.Errors.InvalidCredentials
}
