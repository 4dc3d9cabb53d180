package chatgate

import (
	"errors"
	"time"

	"github.com/MrEthical07/chatgate/cryptox"
	"github.com/MrEthical07/chatgate/internal/audit"
	"github.com/MrEthical07/chatgate/internal/logging"
	"github.com/MrEthical07/chatgate/internal/rate"
	"github.com/MrEthical07/chatgate/internal/stores"
	"github.com/MrEthical07/chatgate/jwt"
	"github.com/MrEthical07/chatgate/password"
	"github.com/MrEthical07/chatgate/session"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyInfo      = "chatgate/session/v1"
	verificationKeyInfo = "chatgate/email-verification/v1"
)

// Logger is the structured logger the engine writes collaborator failures to.
type Logger = logging.Logger

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	credentials CredentialStore
	mailer      MailSender
	logger      Logger
	auditSink   AuditSink
	now         func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client shared by the session store, the challenge store,
// and the Redis rate limit backend.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

func (b *Builder) WithMailSender(sender MailSender) *Builder {
	b.mailer = sender
	return b
}

func (b *Builder) WithLogger(l Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock replaces time.Now for every expiry decision the engine makes.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}
	if b.mailer == nil {
		return nil, errors.New("mail sender required")
	}

	engine := &Engine{
		config:      cfg,
		credentials: b.credentials,
		mailer:      b.mailer,
		logger:      b.logger,
		now:         b.now,
	}
	if engine.logger == nil {
		engine.logger = logging.Nop{}
	}
	if engine.now == nil {
		engine.now = time.Now
	}

	// -------- KEYS --------
	sessionKey, err := cryptox.DeriveKey(cfg.Envelope.Secret, sessionKeyInfo)
	if err != nil {
		return nil, err
	}

	// -------- STORES --------
	engine.sessions = session.NewStore(b.redis, cfg.Session.RedisPrefix, sessionKey)
	engine.challenges = stores.NewChallengeStore(b.redis, cfg.Challenge.RedisPrefix)

	// -------- RATE LIMITERS --------
	var counter rate.Store
	switch cfg.RateLimit.Backend {
	case RateLimitMemory:
		counter = rate.NewMemoryStore(cfg.RateLimit.MemoryMaxKeys, engine.now)
	default:
		counter = rate.NewRedisStore(b.redis)
	}

	engine.loginLimiter, err = rate.New(counter, rate.LoginPrefix, rate.Config{
		MaxAttempts: cfg.RateLimit.LoginMaxAttempts,
		Window:      cfg.RateLimit.LoginWindow,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordLimiter, err = rate.New(counter, rate.PasswordPrefix, rate.Config{
		MaxAttempts: cfg.RateLimit.LoginMaxAttempts,
		Window:      cfg.RateLimit.LoginWindow,
	})
	if err != nil {
		return nil, err
	}
	if cfg.RateLimit.EnableIPThrottle {
		engine.ipLimiter, err = rate.New(counter, rate.LoginIPPrefix, rate.Config{
			MaxAttempts: cfg.RateLimit.IPMaxAttempts,
			Window:      cfg.RateLimit.IPWindow,
		})
		if err != nil {
			return nil, err
		}
	}
	if cfg.RateLimit.EnableRegisterThrottle {
		engine.registerLimiter, err = rate.New(counter, rate.RegisterPrefix, rate.Config{
			MaxAttempts: cfg.RateLimit.RegisterMaxAttempts,
			Window:      cfg.RateLimit.RegisterWindow,
		})
		if err != nil {
			return nil, err
		}
	}

	// -------- PASSWORD --------
	engine.hasher, err = password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}

	// -------- EMAIL VERIFICATION --------
	if cfg.EmailVerification.Enabled {
		linkKey, err := cryptox.DeriveKey(cfg.Envelope.Secret, verificationKeyInfo)
		if err != nil {
			return nil, err
		}
		engine.links, err = jwt.NewManager(jwt.Config{
			TTL:      cfg.EmailVerification.TokenTTL,
			Key:      linkKey,
			KeyID:    cfg.EmailVerification.KeyID,
			Issuer:   cfg.EmailVerification.Issuer,
			Audience: cfg.EmailVerification.Audience,
		})
		if err != nil {
			return nil, err
		}
		engine.resendLimiter, err = rate.New(counter, rate.ResendPrefix, rate.Config{
			MaxAttempts: cfg.EmailVerification.ResendMaxAttempts,
			Window:      cfg.EmailVerification.ResendWindow,
		})
		if err != nil {
			return nil, err
		}
	}

	// -------- OBSERVABILITY --------
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	engine.deps = engine.buildDeps()

	b.built = true

	return engine, nil
}
