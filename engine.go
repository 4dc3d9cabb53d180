package chatgate

import (
	"context"
	"time"

	"github.com/MrEthical07/chatgate/internal/audit"
	"github.com/MrEthical07/chatgate/internal/flows"
	"github.com/MrEthical07/chatgate/internal/rate"
	"github.com/MrEthical07/chatgate/internal/stores"
	"github.com/MrEthical07/chatgate/jwt"
	"github.com/MrEthical07/chatgate/password"
	"github.com/MrEthical07/chatgate/session"
)

// Engine runs the register, login, and code verification protocol and owns
// the resulting sessions. Engine methods are safe for concurrent use once
// Build returns.
type Engine struct {
	config Config
	now    func() time.Time
	logger Logger

	sessions        *session.Store
	challenges      *stores.ChallengeStore
	loginLimiter    *rate.Limiter
	ipLimiter       *rate.Limiter
	registerLimiter *rate.Limiter
	resendLimiter   *rate.Limiter
	passwordLimiter *rate.Limiter
	hasher          *password.Argon2
	links           *jwt.Manager
	credentials     CredentialStore
	mailer          MailSender
	audit           *audit.Dispatcher
	metrics         *Metrics

	deps flows.Deps
}

// Register creates an unverified credential record for email and mails a
// verification link. With email verification disabled the record is created
// verified and no mail is sent.
//
// Errors: ErrInvalidRequest, ErrRateLimited, ErrWeakPassword (as a
// *PasswordPolicyError), ErrAlreadyRegistered, ErrUnavailable.
func (e *Engine) Register(ctx context.Context, email, pw string) (*RegisterResult, error) {
	if e == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunRegister(ctx, email, pw, e.deps.Register)
	if err != nil {
		return nil, err
	}
	return &RegisterResult{
		Identity:         res.Identity,
		Verified:         res.Verified,
		VerificationSent: res.VerificationSent,
	}, nil
}

// Login is the first authentication step. It consumes one attempt from the
// login limiter, verifies the password, and replaces any pending challenge
// with a fresh one-time code delivered through the MailSender.
//
// Errors: ErrInvalidRequest, ErrRateLimited, ErrInvalidCredentials,
// ErrEmailUnverified, ErrUnavailable.
func (e *Engine) Login(ctx context.Context, email, pw string) (*LoginResult, error) {
	if e == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunLogin(ctx, email, pw, e.deps.Login)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Identity: res.Identity, ExpiresAt: res.ExpiresAt}, nil
}

// VerifyChallenge is the second authentication step. A matching code
// consumes the challenge and returns a new session token.
//
// Errors: ErrInvalidRequest, ErrNoPendingChallenge, ErrInvalidCode,
// ErrChallengeLocked, ErrUnavailable.
func (e *Engine) VerifyChallenge(ctx context.Context, email, code string) (*VerifyResult, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunVerifyChallenge(ctx, email, code, e.deps.Challenge)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{
		Identity:     res.Identity,
		SessionToken: res.SessionToken,
		IdleTimeout:  e.config.Session.IdleTimeout,
	}, nil
}

// ValidateSession resolves token to its identity and slides the idle
// timeout. Unknown, revoked, and idle sessions all yield ErrSessionExpired.
func (e *Engine) ValidateSession(ctx context.Context, token string) (*SessionInfo, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	sess, err := flows.RunValidateSession(ctx, token, e.deps.Session)

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	return &SessionInfo{
		Identity:     sess.Identity,
		CreatedAt:    sess.CreatedAt,
		LastActivity: sess.LastActivity,
	}, nil
}

// Logout deletes the session for token. It is idempotent.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	return flows.RunLogout(ctx, token, e.deps.Session)
}

// LogoutAll deletes every session of the identity owning token and returns
// how many were removed.
func (e *Engine) LogoutAll(ctx context.Context, token string) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	return flows.RunLogoutAll(ctx, token, e.deps.Session)
}

// ConfirmEmail marks the identity named by a verification link token as
// verified and returns it.
func (e *Engine) ConfirmEmail(ctx context.Context, token string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if e.links == nil {
		return "", ErrInvalidVerificationToken
	}
	return flows.RunConfirmEmail(ctx, token, e.deps.Verification)
}

// ResendVerification mails a fresh link when email belongs to an unverified
// record. The result does not reveal whether the email is registered.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.links == nil {
		return nil
	}
	return flows.RunResendVerification(ctx, email, e.deps.Verification)
}

// ChangePassword replaces the verifier of the session's identity and revokes
// every other session of that identity.
//
// Errors: ErrSessionExpired, ErrInvalidRequest, ErrInvalidCredentials,
// ErrPasswordReuse, ErrWeakPassword, ErrUnavailable.
func (e *Engine) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error {
	if e == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	return flows.RunChangePassword(ctx, token, oldPassword, newPassword, e.deps.PasswordChange)
}

// ResetRateLimit clears the login and password change attempt buckets for
// email.
func (e *Engine) ResetRateLimit(ctx context.Context, email string) error {
	if e == nil || e.loginLimiter == nil || e.passwordLimiter == nil {
		return ErrEngineNotReady
	}
	identity := flows.NormalizeEmail(email)
	if err := e.loginLimiter.Reset(ctx, identity); err != nil {
		return err
	}
	return e.passwordLimiter.Reset(ctx, identity)
}

// Ping checks the Redis connection shared by the engine's stores.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	_, err := e.sessions.Ping(ctx)
	return err
}

// Close drains the audit dispatcher and flushes buffering sinks.
func (e *Engine) Close() error {
	if e == nil || e.audit == nil {
		return nil
	}
	return e.audit.Close()
}

// AuditDropped reports audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
