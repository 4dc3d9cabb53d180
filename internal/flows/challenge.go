package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/chatgate/cryptox"
	"github.com/MrEthical07/chatgate/internal/stores"
	"github.com/MrEthical07/chatgate/session"
)

// VerifyResult is the flow-local outcome of a successful code verification.
type VerifyResult struct {
	Identity     string
	SessionToken string
}

// ChallengeDeps captures the second login step.
type ChallengeDeps struct {
	Common

	Challenges  ChallengeStore
	Sessions    SessionStore
	MaxAttempts int
	IdleTimeout time.Duration

	NewToken func() (string, error)
}

// RunVerifyChallenge consumes the identity's pending challenge with code and,
// on a match, creates an authenticated session.
func RunVerifyChallenge(ctx context.Context, email, code string, deps ChallengeDeps) (*VerifyResult, error) {
	deps.fill()
	if deps.Challenges == nil || deps.Sessions == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.NewToken == nil {
		deps.NewToken = cryptox.GenerateToken
	}

	identity := NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if identity == "" || code == "" {
		return nil, deps.Errors.InvalidRequest
	}

	now := deps.Now()
	outcome, err := deps.Challenges.Verify(ctx, identity, cryptox.HashSecret(code), deps.MaxAttempts, now)
	if err != nil {
		if errors.Is(err, stores.ErrChallengeNotFound) || errors.Is(err, stores.ErrChallengeExpired) {
			deps.MetricInc(deps.Metrics.ChallengeMissing)
			deps.EmitAudit(ctx, deps.Events.ChallengeFailure, false, identity, "", deps.Errors.NoPendingChallenge, nil)
			return nil, deps.Errors.NoPendingChallenge
		}
		deps.Warn(ctx, "challenge verify failed", "error", err)
		return nil, unavailable(&deps.Common, err)
	}

	switch outcome {
	case stores.VerifyMismatch:
		deps.MetricInc(deps.Metrics.ChallengeMismatch)
		deps.EmitAudit(ctx, deps.Events.ChallengeFailure, false, identity, "", deps.Errors.InvalidCode, nil)
		return nil, deps.Errors.InvalidCode
	case stores.VerifyLocked:
		deps.MetricInc(deps.Metrics.ChallengeLocked)
		deps.EmitAudit(ctx, deps.Events.ChallengeLocked, false, identity, "", deps.Errors.ChallengeLocked, nil)
		return nil, deps.Errors.ChallengeLocked
	case stores.VerifyMatched:
	default:
		return nil, deps.Errors.NoPendingChallenge
	}

	token, err := deps.NewToken()
	if err != nil {
		return nil, unavailable(&deps.Common, err)
	}
	sess := &session.Session{
		SchemaVersion: session.CurrentSchemaVersion,
		Identity:      identity,
		CreatedAt:     now,
		LastActivity:  now,
		Authenticated: true,
	}
	if err := deps.Sessions.Put(ctx, token, sess, deps.IdleTimeout); err != nil {
		deps.Warn(ctx, "session create failed", "error", err)
		return nil, unavailable(&deps.Common, err)
	}

	deps.MetricInc(deps.Metrics.ChallengeSuccess)
	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.EmitAudit(ctx, deps.Events.ChallengeSuccess, true, identity, session.ID(token), nil, nil)
	return &VerifyResult{Identity: identity, SessionToken: token}, nil
}
