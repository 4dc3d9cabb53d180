package appconfig

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/chatgate"
	"github.com/MrEthical07/chatgate/internal/logging"
)

// Config holds process settings for cmd/chatgate.
//
// Fields:
//   - ListenAddr: HTTP bind address.
//   - PublicURL: externally visible base URL; verification links point at
//     PublicURL + "/api/verify-email".
//   - Secret: root secret for session sealing and link signing.
//   - Redis.Embedded: run an in-process miniredis instead of dialing Addr.
//   - Database.Driver: "memory", "sqlite" or "pgx".
//   - Mail.Host: empty prints mail to stdout instead of sending it.
//   - Chat.BaseURL: empty answers every chat with a fixed placeholder.
//   - Audit.S3.Bucket: empty disables the S3 audit archive.
type Config struct {
	ListenAddr    string `toml:"listen_addr"`
	PublicURL     string `toml:"public_url"`
	LogLevel      string `toml:"log_level"`
	Secret        string `toml:"secret"`
	SecureCookies bool   `toml:"secure_cookies"`

	Redis     RedisConfig     `toml:"redis"`
	Database  DatabaseConfig  `toml:"database"`
	Mail      MailConfig      `toml:"mail"`
	Chat      ChatConfig      `toml:"chat"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Session   SessionConfig   `toml:"session"`
	Audit     AuditConfig     `toml:"audit"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Embedded bool   `toml:"embedded"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type MailConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	From       string `toml:"from"`
	RequireTLS bool   `toml:"require_tls"`
}

type ChatConfig struct {
	BaseURL      string        `toml:"base_url"`
	Model        string        `toml:"model"`
	SystemPrompt string        `toml:"system_prompt"`
	Timeout      time.Duration `toml:"timeout"`
}

type RateLimitConfig struct {
	LoginMaxAttempts int           `toml:"login_max_attempts"`
	LoginWindow      time.Duration `toml:"login_window"`
	RequestsPerSec   float64       `toml:"requests_per_second"`
	Burst            int           `toml:"burst"`
}

type SessionConfig struct {
	IdleTimeout      time.Duration `toml:"idle_timeout"`
	AbsoluteLifetime time.Duration `toml:"absolute_lifetime"`
}

type AuditConfig struct {
	Enabled bool     `toml:"enabled"`
	S3      S3Config `toml:"s3"`
}

type S3Config struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	BatchSize       int    `toml:"batch_size"`
}

// LoadDefaults populates c with development defaults: embedded Redis, an
// in-memory credential store, mail on stdout, and no chat backend.
// Secret stays empty and must be supplied.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.PublicURL = "http://localhost:8080"
	c.LogLevel = "info"
	c.Redis = RedisConfig{Addr: "127.0.0.1:6379", Embedded: true}
	c.Database = DatabaseConfig{Driver: "memory"}
	c.Mail = MailConfig{Port: 587, From: "chatgate@localhost", RequireTLS: true}
	c.Chat = ChatConfig{Model: "deepseek-coder:1.3b", Timeout: 60 * time.Second}
	c.RateLimit = RateLimitConfig{
		LoginMaxAttempts: 5,
		LoginWindow:      15 * time.Minute,
		RequestsPerSec:   10,
		Burst:            30,
	}
	c.Session = SessionConfig{IdleTimeout: 30 * time.Minute}
	c.Audit = AuditConfig{S3: S3Config{Region: "us-east-1", Prefix: "chatgate/audit"}}
}

// Load builds a Config from defaults, then the TOML file named by -config,
// then the environment, then the remaining flags. getenv is usually
// os.Getenv.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := configPath(args); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg, getenv)
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen address required")
	}
	if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("public url must be absolute")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if len(c.Secret) < 32 {
		return errors.New("secret must be at least 32 characters")
	}
	if !c.Redis.Embedded && c.Redis.Addr == "" {
		return errors.New("redis address required unless embedded")
	}
	switch c.Database.Driver {
	case "memory":
	case "sqlite", "pgx", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Mail.Host != "" && (c.Mail.Port <= 0 || c.Mail.Port > 65535) {
		return errors.New("mail port out of range")
	}
	if c.Chat.BaseURL != "" {
		if u, err := url.Parse(c.Chat.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("chat base url must be absolute")
		}
	}
	if c.RateLimit.LoginMaxAttempts <= 0 || c.RateLimit.LoginWindow <= 0 {
		return errors.New("login rate limit must be positive")
	}
	if c.RateLimit.RequestsPerSec <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("request throttle must be positive")
	}
	if c.Session.IdleTimeout <= 0 {
		return errors.New("session idle timeout must be positive")
	}
	if c.Audit.S3.Bucket != "" && !c.Audit.Enabled {
		return errors.New("audit s3 bucket set but audit disabled")
	}
	return nil
}

// Engine maps the process settings onto the engine configuration.
func (c *Config) Engine() chatgate.Config {
	ec := chatgate.DefaultConfig()
	ec.Envelope.Secret = []byte(c.Secret)
	ec.Session.IdleTimeout = c.Session.IdleTimeout
	ec.Session.AbsoluteLifetime = c.Session.AbsoluteLifetime
	ec.RateLimit.LoginMaxAttempts = c.RateLimit.LoginMaxAttempts
	ec.RateLimit.LoginWindow = c.RateLimit.LoginWindow
	ec.EmailVerification.LinkBaseURL = strings.TrimRight(c.PublicURL, "/") + "/api/verify-email"
	ec.Audit.Enabled = c.Audit.Enabled
	return ec
}
