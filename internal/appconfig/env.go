package appconfig

import (
	"strconv"
	"strings"
	"time"
)

// applyEnv overrides cfg from CHATGATE_* variables. Mail credentials also
// come from MAIL_USERNAME and MAIL_PASSWORD; the CHATGATE_ forms win when
// both are set. Unparseable numbers and durations are ignored.
func applyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		return
	}
	str := func(dst *string, names ...string) {
		for _, n := range names {
			if v := strings.TrimSpace(getenv(n)); v != "" {
				*dst = v
			}
		}
	}
	integer := func(dst *int, name string) {
		if v, err := strconv.Atoi(strings.TrimSpace(getenv(name))); err == nil {
			*dst = v
		}
	}
	boolean := func(dst *bool, name string) {
		if v, err := strconv.ParseBool(strings.TrimSpace(getenv(name))); err == nil {
			*dst = v
		}
	}
	duration := func(dst *time.Duration, name string) {
		if v, err := time.ParseDuration(strings.TrimSpace(getenv(name))); err == nil {
			*dst = v
		}
	}

	str(&cfg.ListenAddr, "CHATGATE_LISTEN_ADDR")
	str(&cfg.PublicURL, "CHATGATE_PUBLIC_URL")
	str(&cfg.LogLevel, "CHATGATE_LOG_LEVEL")
	str(&cfg.Secret, "CHATGATE_SECRET")
	boolean(&cfg.SecureCookies, "CHATGATE_SECURE_COOKIES")

	str(&cfg.Redis.Addr, "CHATGATE_REDIS_ADDR")
	str(&cfg.Redis.Password, "CHATGATE_REDIS_PASSWORD")
	integer(&cfg.Redis.DB, "CHATGATE_REDIS_DB")
	boolean(&cfg.Redis.Embedded, "CHATGATE_REDIS_EMBEDDED")

	str(&cfg.Database.Driver, "CHATGATE_DB_DRIVER")
	str(&cfg.Database.DSN, "CHATGATE_DB_DSN")

	str(&cfg.Mail.Host, "CHATGATE_MAIL_HOST")
	integer(&cfg.Mail.Port, "CHATGATE_MAIL_PORT")
	str(&cfg.Mail.Username, "MAIL_USERNAME", "CHATGATE_MAIL_USERNAME")
	str(&cfg.Mail.Password, "MAIL_PASSWORD", "CHATGATE_MAIL_PASSWORD")
	str(&cfg.Mail.From, "CHATGATE_MAIL_FROM")
	boolean(&cfg.Mail.RequireTLS, "CHATGATE_MAIL_REQUIRE_TLS")

	str(&cfg.Chat.BaseURL, "CHATGATE_CHAT_URL")
	str(&cfg.Chat.Model, "CHATGATE_CHAT_MODEL")
	duration(&cfg.Chat.Timeout, "CHATGATE_CHAT_TIMEOUT")

	integer(&cfg.RateLimit.LoginMaxAttempts, "CHATGATE_LOGIN_MAX_ATTEMPTS")
	duration(&cfg.RateLimit.LoginWindow, "CHATGATE_LOGIN_WINDOW")
	duration(&cfg.Session.IdleTimeout, "CHATGATE_SESSION_IDLE_TIMEOUT")

	boolean(&cfg.Audit.Enabled, "CHATGATE_AUDIT_ENABLED")
	str(&cfg.Audit.S3.Bucket, "CHATGATE_AUDIT_S3_BUCKET")
	str(&cfg.Audit.S3.Region, "CHATGATE_AUDIT_S3_REGION")
	str(&cfg.Audit.S3.Endpoint, "CHATGATE_AUDIT_S3_ENDPOINT")
	str(&cfg.Audit.S3.AccessKeyID, "CHATGATE_AUDIT_S3_ACCESS_KEY_ID")
	str(&cfg.Audit.S3.SecretAccessKey, "CHATGATE_AUDIT_S3_SECRET_ACCESS_KEY")
}
