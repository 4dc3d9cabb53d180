package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/chatgate/credstore"
	"github.com/MrEthical07/chatgate/internal/stores"
	"github.com/MrEthical07/chatgate/jwt"
	"github.com/MrEthical07/chatgate/password"
	"github.com/MrEthical07/chatgate/session"
)

// CredentialStore is the persistence collaborator.
type CredentialStore interface {
	Find(ctx context.Context, email string) (*credstore.Record, error)
	Create(ctx context.Context, rec *credstore.Record) error
	MarkVerified(ctx context.Context, email string) error
	UpdateVerifier(ctx context.Context, email, verifier string) error
}

// Hasher produces and checks password verifiers.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	VerifyDummy(password string)
	NeedsUpgrade(encoded string) (bool, error)
}

// Limiter is a fixed-window attempt limiter.
type Limiter interface {
	CheckAndConsume(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// Mailer delivers codes and verification links.
type Mailer interface {
	SendCode(ctx context.Context, to, code string) error
	SendVerification(ctx context.Context, to, link string) error
}

// ChallengeStore holds pending one-time code challenges.
type ChallengeStore interface {
	Save(ctx context.Context, record *stores.Challenge) error
	Verify(ctx context.Context, identity string, codeHash [32]byte, maxAttempts int, now time.Time) (stores.VerifyOutcome, error)
	Delete(ctx context.Context, identity string) (bool, error)
}

// SessionStore persists sessions by token.
type SessionStore interface {
	Put(ctx context.Context, token string, sess *session.Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (*session.Session, error)
	Touch(ctx context.Context, token string, sess *session.Session, ttl time.Duration) error
	Delete(ctx context.Context, token string) (bool, error)
	DeleteAllForIdentity(ctx context.Context, identity, keepToken string) (int, error)
}

// LinkTokens issues and parses signed link tokens.
type LinkTokens interface {
	Issue(email, purpose string, now time.Time) (string, error)
	Parse(token, purpose string, now time.Time) (*jwt.Claims, error)
}

// Metrics carries the host metric IDs used by flows.
type Metrics struct {
	RegisterSuccess       int
	RegisterDuplicate     int
	RegisterWeakPassword  int
	RegisterRateLimited   int
	LoginChallengeIssued  int
	LoginFailure          int
	LoginRateLimited      int
	LoginUnverified       int
	ChallengeSuccess      int
	ChallengeMismatch     int
	ChallengeLocked       int
	ChallengeMissing      int
	SessionCreated        int
	SessionValidated      int
	SessionExpired        int
	Logout                int
	LogoutAll             int
	VerificationSent      int
	VerificationSuccess   int
	VerificationFailure   int
	PasswordChangeSuccess int
	PasswordChangeFailure int
	MailFailure           int
}

// Events carries the host audit event names used by flows.
type Events struct {
	RegisterSuccess       string
	RegisterFailure       string
	RegisterDuplicate     string
	LoginChallengeIssued  string
	LoginFailure          string
	ChallengeSuccess      string
	ChallengeFailure      string
	ChallengeLocked       string
	SessionExpired        string
	LogoutSession         string
	LogoutAll             string
	VerificationSent      string
	VerificationConfirm   string
	PasswordChangeSuccess string
	PasswordChangeFailure string
}

// Errors carries host-level sentinel errors.
type Errors struct {
	EngineNotReady           error
	InvalidRequest           error
	AlreadyRegistered        error
	InvalidCredentials       error
	RateLimited              error
	EmailUnverified          error
	NoPendingChallenge       error
	InvalidCode              error
	ChallengeLocked          error
	SessionExpired           error
	InvalidVerificationToken error
	PasswordReuse            error
	Unavailable              error

	PasswordPolicy func(password.Reason) error
}

// Hooks are the observability callbacks shared by every flow. Nil hooks are
// replaced with no-ops.
type Hooks struct {
	Now           func() time.Time
	ClientIP      func(context.Context) string
	MetricInc     func(int)
	EmitAudit     func(ctx context.Context, event string, success bool, identity, sessionID string, err error, metadata func() map[string]string)
	EmitRateLimit func(ctx context.Context, scope string, metadata func() map[string]string)
	Warn          func(ctx context.Context, msg string, args ...any)
}

func (h *Hooks) fill() {
	if h.Now == nil {
		h.Now = time.Now
	}
	if h.ClientIP == nil {
		h.ClientIP = func(context.Context) string { return "" }
	}
	if h.MetricInc == nil {
		h.MetricInc = func(int) {}
	}
	if h.EmitAudit == nil {
		h.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if h.EmitRateLimit == nil {
		h.EmitRateLimit = func(context.Context, string, func() map[string]string) {}
	}
	if h.Warn == nil {
		h.Warn = func(context.Context, string, ...any) {}
	}
}

// Common is embedded in every flow dependency set.
type Common struct {
	Hooks
	Metrics Metrics
	Events  Events
	Errors  Errors
}

// Deps groups flow dependency sets. The root engine builds this once and
// delegates each request method to the matching flow.
type Deps struct {
	Register       RegisterDeps
	Login          LoginDeps
	Challenge      ChallengeDeps
	Session        SessionDeps
	Verification   VerificationDeps
	PasswordChange PasswordChangeDeps
}
