package chatgate

import (
	"errors"
	"net/url"
	"time"
)

// Config is the engine configuration. Build copies it; later changes to the
// caller's value have no effect.
type Config struct {
	Session           SessionConfig
	Challenge         ChallengeConfig
	RateLimit         RateLimitConfig
	Password          PasswordConfig
	EmailVerification EmailVerificationConfig
	Envelope          EnvelopeConfig
	Audit             AuditConfig
	Metrics           MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime. IdleTimeout is also the Redis TTL
// of each record and slides on every successful validation. A positive
// AbsoluteLifetime caps a session regardless of activity.
type SessionConfig struct {
	RedisPrefix      string
	IdleTimeout      time.Duration
	AbsoluteLifetime time.Duration
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig controls the one-time code issued by Login.
type ChallengeConfig struct {
	RedisPrefix string
	TTL         time.Duration
	CodeDigits  int
	MaxAttempts int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitBackend selects where attempt counters live.
type RateLimitBackend string

const (
	RateLimitRedis  RateLimitBackend = "redis"
	RateLimitMemory RateLimitBackend = "memory"
)

// RateLimitConfig configures the fixed-window attempt limiters. The login
// limiter keyed by email is always on, and the password change limiter shares
// its attempts and window under its own buckets. The per-IP login and
// registration limiters are optional.
type RateLimitConfig struct {
	Backend       RateLimitBackend
	MemoryMaxKeys int

	LoginMaxAttempts int
	LoginWindow      time.Duration

	EnableIPThrottle bool
	IPMaxAttempts    int
	IPWindow         time.Duration

	EnableRegisterThrottle bool
	RegisterMaxAttempts    int
	RegisterWindow         time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters for the verifier hasher.
type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	UpgradeOnLogin   bool
}

/*
====================================
EMAIL VERIFICATION CONFIG
====================================
*/

// EmailVerificationConfig controls the signed verification link mailed on
// registration. When Enabled is false new records are created verified.
type EmailVerificationConfig struct {
	Enabled         bool
	RequireForLogin bool
	TokenTTL        time.Duration
	LinkBaseURL     string
	Issuer          string
	Audience        string
	KeyID           string

	ResendMaxAttempts int
	ResendWindow      time.Duration
}

/*
====================================
ENVELOPE CONFIG
====================================
*/

// EnvelopeConfig holds the root secret from which the session sealing key
// and the verification signing key are derived.
type EnvelopeConfig struct {
	Secret []byte
}

// AuditConfig controls the buffered audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the validate latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the production defaults. Envelope.Secret is left
// empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:      "as",
			IdleTimeout:      30 * time.Minute,
			AbsoluteLifetime: 0,
		},
		Challenge: ChallengeConfig{
			RedisPrefix: "amc",
			TTL:         10 * time.Minute,
			CodeDigits:  6,
			MaxAttempts: 5,
		},
		RateLimit: RateLimitConfig{
			Backend:                RateLimitRedis,
			MemoryMaxKeys:          100_000,
			LoginMaxAttempts:       5,
			LoginWindow:            15 * time.Minute,
			EnableIPThrottle:       false,
			IPMaxAttempts:          50,
			IPWindow:               15 * time.Minute,
			EnableRegisterThrottle: false,
			RegisterMaxAttempts:    10,
			RegisterWindow:         time.Hour,
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
			UpgradeOnLogin:   true,
		},
		EmailVerification: EmailVerificationConfig{
			Enabled:           true,
			RequireForLogin:   true,
			TokenTTL:          24 * time.Hour,
			LinkBaseURL:       "http://localhost:8080/api/verify-email",
			Issuer:            "chatgate",
			Audience:          "email-verification",
			ResendMaxAttempts: 3,
			ResendWindow:      time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Envelope.Secret = cloneBytes(cfg.Envelope.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Session
	if c.Session.IdleTimeout <= 0 {
		return errors.New("Session IdleTimeout must be > 0")
	}
	if c.Session.AbsoluteLifetime < 0 {
		return errors.New("Session AbsoluteLifetime must be >= 0")
	}
	if c.Session.AbsoluteLifetime > 0 && c.Session.AbsoluteLifetime < c.Session.IdleTimeout {
		return errors.New("Session AbsoluteLifetime must be >= IdleTimeout when set")
	}

	// Challenge
	if c.Challenge.TTL <= 0 {
		return errors.New("Challenge TTL must be > 0")
	}
	if c.Challenge.CodeDigits < 6 || c.Challenge.CodeDigits > 10 {
		return errors.New("Challenge CodeDigits must be between 6 and 10")
	}
	if c.Challenge.MaxAttempts <= 0 {
		return errors.New("Challenge MaxAttempts must be > 0")
	}

	// Rate limit
	switch c.RateLimit.Backend {
	case RateLimitRedis, RateLimitMemory:
	default:
		return errors.New("RateLimit Backend must be 'redis' or 'memory'")
	}
	if c.RateLimit.LoginMaxAttempts <= 0 || c.RateLimit.LoginWindow <= 0 {
		return errors.New("RateLimit LoginMaxAttempts and LoginWindow must be > 0")
	}
	if c.RateLimit.EnableIPThrottle && (c.RateLimit.IPMaxAttempts <= 0 || c.RateLimit.IPWindow <= 0) {
		return errors.New("RateLimit IPMaxAttempts and IPWindow must be > 0 when EnableIPThrottle is true")
	}
	if c.RateLimit.EnableRegisterThrottle && (c.RateLimit.RegisterMaxAttempts <= 0 || c.RateLimit.RegisterWindow <= 0) {
		return errors.New("RateLimit RegisterMaxAttempts and RegisterWindow must be > 0 when EnableRegisterThrottle is true")
	}
	if c.RateLimit.Backend == RateLimitMemory && c.RateLimit.MemoryMaxKeys <= 0 {
		return errors.New("RateLimit MemoryMaxKeys must be > 0 for the memory backend")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes <= 0 {
		return errors.New("Password MaxPasswordBytes must be > 0")
	}

	// Email verification
	if c.EmailVerification.Enabled {
		if c.EmailVerification.TokenTTL <= 0 {
			return errors.New("EmailVerification TokenTTL must be > 0")
		}
		u, err := url.Parse(c.EmailVerification.LinkBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("EmailVerification LinkBaseURL must be an absolute URL")
		}
		if c.EmailVerification.ResendMaxAttempts <= 0 || c.EmailVerification.ResendWindow <= 0 {
			return errors.New("EmailVerification ResendMaxAttempts and ResendWindow must be > 0")
		}
	} else if c.EmailVerification.RequireForLogin {
		return errors.New("EmailVerification RequireForLogin requires Enabled")
	}

	// Envelope
	if len(c.Envelope.Secret) < 16 {
		return errors.New("Envelope Secret must be at least 16 bytes")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
