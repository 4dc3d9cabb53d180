package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/chatgate/credstore"
	"github.com/MrEthical07/chatgate/password"
	"github.com/google/uuid"
)

// RegisterResult is the flow-local registration outcome.
type RegisterResult struct {
	Identity         string
	Verified         bool
	VerificationSent bool
}

// RegisterDeps captures registration dependencies. Limiter is keyed by client
// IP and optional.
type RegisterDeps struct {
	Common

	Credentials         CredentialStore
	Hasher              Hasher
	Limiter             Limiter
	RequireVerification bool

	NewID            func() string
	SendVerification func(ctx context.Context, email string) error
}

// RunRegister creates an unverified credential record and mails the
// verification link. A mail failure does not undo the registration; the
// caller may resend.
func RunRegister(ctx context.Context, email, pw string, deps RegisterDeps) (*RegisterResult, error) {
	deps.fill()
	if deps.Credentials == nil || deps.Hasher == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	identity := NormalizeEmail(email)
	if !ValidEmail(identity) || pw == "" {
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", "", deps.Errors.InvalidRequest, nil)
		return nil, deps.Errors.InvalidRequest
	}

	if err := consume(ctx, &deps.Common, deps.Limiter, "register", deps.ClientIP(ctx)); err != nil {
		if errors.Is(err, deps.Errors.RateLimited) {
			deps.MetricInc(deps.Metrics.RegisterRateLimited)
		}
		return nil, err
	}

	if res := password.Validate(pw); !res.Valid {
		deps.MetricInc(deps.Metrics.RegisterWeakPassword)
		policyErr := deps.Errors.PasswordPolicy(res.Reason)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, identity, "", policyErr, func() map[string]string {
			return map[string]string{"reason": res.Reason.String()}
		})
		return nil, policyErr
	}

	if _, err := deps.Credentials.Find(ctx, identity); err == nil {
		return nil, registerDuplicate(ctx, identity, &deps)
	} else if !errors.Is(err, credstore.ErrNotFound) {
		deps.Warn(ctx, "credential lookup failed", "error", err)
		return nil, unavailable(&deps.Common, err)
	}

	verifier, err := deps.Hasher.Hash(pw)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) || errors.Is(err, password.ErrEmptyPassword) {
			return nil, deps.Errors.InvalidRequest
		}
		return nil, unavailable(&deps.Common, err)
	}
	pw = ""

	now := deps.Now().UTC()
	rec := &credstore.Record{
		ID:        deps.NewID(),
		Email:     identity,
		Verifier:  verifier,
		Verified:  !deps.RequireVerification,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := deps.Credentials.Create(ctx, rec); err != nil {
		if errors.Is(err, credstore.ErrDuplicate) {
			return nil, registerDuplicate(ctx, identity, &deps)
		}
		deps.Warn(ctx, "credential create failed", "error", err)
		return nil, unavailable(&deps.Common, err)
	}

	result := &RegisterResult{Identity: identity, Verified: rec.Verified}
	if deps.RequireVerification && deps.SendVerification != nil {
		if err := deps.SendVerification(ctx, identity); err != nil {
			deps.Warn(ctx, "verification mail failed after registration", "error", err)
		} else {
			result.VerificationSent = true
		}
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, identity, "", nil, nil)
	return result, nil
}

func registerDuplicate(ctx context.Context, identity string, deps *RegisterDeps) error {
	deps.MetricInc(deps.Metrics.RegisterDuplicate)
	deps.EmitAudit(ctx, deps.Events.RegisterDuplicate, false, identity, "", deps.Errors.AlreadyRegistered, nil)
	return deps.Errors.AlreadyRegistered
}
