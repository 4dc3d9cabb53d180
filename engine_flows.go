package chatgate

import (
	"context"

	"github.com/MrEthical07/chatgate/cryptox"
	"github.com/MrEthical07/chatgate/internal/flows"
	"github.com/MrEthical07/chatgate/internal/rate"
	"github.com/MrEthical07/chatgate/password"
)

func (e *Engine) buildDeps() flows.Deps {
	common := flows.Common{
		Hooks: flows.Hooks{
			Now:       e.now,
			ClientIP:  clientIPFromContext,
			MetricInc: func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit: e.emitAudit,
			EmitRateLimit: func(ctx context.Context, scope string, metadata func() map[string]string) {
				e.emitRateLimit(ctx, scope, metadata)
			},
			Warn: e.warn,
		},
		Metrics: flows.Metrics{
			RegisterSuccess:       int(MetricRegisterSuccess),
			RegisterDuplicate:     int(MetricRegisterDuplicate),
			RegisterWeakPassword:  int(MetricRegisterWeakPassword),
			RegisterRateLimited:   int(MetricRegisterRateLimited),
			LoginChallengeIssued:  int(MetricLoginChallengeIssued),
			LoginFailure:          int(MetricLoginFailure),
			LoginRateLimited:      int(MetricLoginRateLimited),
			LoginUnverified:       int(MetricLoginUnverified),
			ChallengeSuccess:      int(MetricChallengeSuccess),
			ChallengeMismatch:     int(MetricChallengeMismatch),
			ChallengeLocked:       int(MetricChallengeLocked),
			ChallengeMissing:      int(MetricChallengeMissing),
			SessionCreated:        int(MetricSessionCreated),
			SessionValidated:      int(MetricSessionValidated),
			SessionExpired:        int(MetricSessionExpired),
			Logout:                int(MetricLogout),
			LogoutAll:             int(MetricLogoutAll),
			VerificationSent:      int(MetricEmailVerificationSent),
			VerificationSuccess:   int(MetricEmailVerificationSuccess),
			VerificationFailure:   int(MetricEmailVerificationFailure),
			PasswordChangeSuccess: int(MetricPasswordChangeSuccess),
			PasswordChangeFailure: int(MetricPasswordChangeFailure),
			MailFailure:           int(MetricMailFailure),
		},
		Events: flows.Events{
			RegisterSuccess:       auditEventRegisterSuccess,
			RegisterFailure:       auditEventRegisterFailure,
			RegisterDuplicate:     auditEventRegisterDuplicate,
			LoginChallengeIssued:  auditEventLoginChallengeIssued,
			LoginFailure:          auditEventLoginFailure,
			ChallengeSuccess:      auditEventChallengeSuccess,
			ChallengeFailure:      auditEventChallengeFailure,
			ChallengeLocked:       auditEventChallengeLocked,
			SessionExpired:        auditEventSessionExpired,
			LogoutSession:         auditEventLogoutSession,
			LogoutAll:             auditEventLogoutAll,
			VerificationSent:      auditEventVerificationSent,
			VerificationConfirm:   auditEventVerificationConfirm,
			PasswordChangeSuccess: auditEventPasswordChangeSuccess,
			PasswordChangeFailure: auditEventPasswordChangeFailure,
		},
		Errors: flows.Errors{
			EngineNotReady:           ErrEngineNotReady,
			InvalidRequest:           ErrInvalidRequest,
			AlreadyRegistered:        ErrAlreadyRegistered,
			InvalidCredentials:       ErrInvalidCredentials,
			RateLimited:              ErrRateLimited,
			EmailUnverified:          ErrEmailUnverified,
			NoPendingChallenge:       ErrNoPendingChallenge,
			InvalidCode:              ErrInvalidCode,
			ChallengeLocked:          ErrChallengeLocked,
			SessionExpired:           ErrSessionExpired,
			InvalidVerificationToken: ErrInvalidVerificationToken,
			PasswordReuse:            ErrPasswordReuse,
			Unavailable:              ErrUnavailable,
			PasswordPolicy: func(r password.Reason) error {
				return &PasswordPolicyError{Reason: r}
			},
		},
	}

	sessionDeps := flows.SessionDeps{
		Common:           common,
		Sessions:         e.sessions,
		IdleTimeout:      e.config.Session.IdleTimeout,
		AbsoluteLifetime: e.config.Session.AbsoluteLifetime,
	}

	verificationDeps := flows.VerificationDeps{
		Common:      common,
		Credentials: e.credentials,
		Mailer:      e.mailer,
		Limiter:     optionalLimiter(e.resendLimiter),
		LinkBaseURL: e.config.EmailVerification.LinkBaseURL,
	}
	if e.links != nil {
		verificationDeps.Tokens = e.links
	}

	register := flows.RegisterDeps{
		Common:              common,
		Credentials:         e.credentials,
		Hasher:              e.hasher,
		Limiter:             optionalLimiter(e.registerLimiter),
		RequireVerification: e.config.EmailVerification.Enabled,
	}
	if e.links != nil {
		register.SendVerification = func(ctx context.Context, identity string) error {
			return flows.RunSendVerification(ctx, identity, verificationDeps)
		}
	}

	return flows.Deps{
		Register: register,
		Login: flows.LoginDeps{
			Common:          common,
			Credentials:     e.credentials,
			Hasher:          e.hasher,
			Limiter:         optionalLimiter(e.loginLimiter),
			IPLimiter:       optionalLimiter(e.ipLimiter),
			Challenges:      e.challenges,
			Mailer:          e.mailer,
			RequireVerified: e.config.EmailVerification.RequireForLogin,
			UpgradeOnLogin:  e.config.Password.UpgradeOnLogin,
			CodeDigits:      e.config.Challenge.CodeDigits,
			ChallengeTTL:    e.config.Challenge.TTL,
			GenerateCode:    cryptox.GenerateCode,
		},
		Challenge: flows.ChallengeDeps{
			Common:      common,
			Challenges:  e.challenges,
			Sessions:    e.sessions,
			MaxAttempts: e.config.Challenge.MaxAttempts,
			IdleTimeout: e.config.Session.IdleTimeout,
			NewToken:    cryptox.GenerateToken,
		},
		Session:      sessionDeps,
		Verification: verificationDeps,
		PasswordChange: flows.PasswordChangeDeps{
			Common:      common,
			Session:     sessionDeps,
			Credentials: e.credentials,
			Hasher:      e.hasher,
			Limiter:     optionalLimiter(e.passwordLimiter),
		},
	}
}

// optionalLimiter keeps a disabled limiter a nil interface.
func optionalLimiter(l *rate.Limiter) flows.Limiter {
	if l == nil {
		return nil
	}
	return l
}

func (e *Engine) warn(ctx context.Context, msg string, args ...any) {
	if e == nil || e.logger == nil {
		return
	}
	for i := 1; i < len(args); i += 2 {
		if err, ok := args[i].(error); ok {
			args[i] = cryptox.Redact(err.Error())
		}
	}
	e.logger.Warn(ctx, msg, append(args, "request_id", RequestIDFromContext(ctx))...)
}
