package appconfig

import (
	"flag"
	"io"
	"strings"
)

// configPath returns the value of -config (or --config) without parsing the
// other flags.
func configPath(args []string) string {
	for i := 0; i < len(args); i++ {
		name, value, hasValue := strings.Cut(strings.TrimLeft(args[i], "-"), "=")
		if !strings.HasPrefix(args[i], "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			return args[i+1]
		}
	}
	return ""
}

// parseFlags applies command-line overrides. Flag defaults are the values
// already loaded, so an absent flag changes nothing.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("chatgate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var ignored string
	fs.StringVar(&ignored, "config", "", "path to TOML config file")

	fs.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "HTTP listen address")
	fs.StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "externally visible base URL")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&cfg.SecureCookies, "secure-cookies", cfg.SecureCookies, "mark cookies Secure")
	fs.StringVar(&cfg.Redis.Addr, "redis", cfg.Redis.Addr, "Redis address")
	fs.BoolVar(&cfg.Redis.Embedded, "redis-embedded", cfg.Redis.Embedded, "run an in-process Redis")
	fs.StringVar(&cfg.Database.Driver, "db-driver", cfg.Database.Driver, "memory, sqlite or pgx")
	fs.StringVar(&cfg.Database.DSN, "db-dsn", cfg.Database.DSN, "database DSN")
	fs.StringVar(&cfg.Mail.Host, "smtp-host", cfg.Mail.Host, "SMTP host; empty prints mail to stdout")
	fs.IntVar(&cfg.Mail.Port, "smtp-port", cfg.Mail.Port, "SMTP port")
	fs.StringVar(&cfg.Mail.From, "mail-from", cfg.Mail.From, "sender address")
	fs.StringVar(&cfg.Chat.BaseURL, "chat-url", cfg.Chat.BaseURL, "Ollama base URL; empty uses a placeholder reply")
	fs.StringVar(&cfg.Chat.Model, "chat-model", cfg.Chat.Model, "chat model name")
	fs.BoolVar(&cfg.Audit.Enabled, "audit", cfg.Audit.Enabled, "enable audit events")
	fs.StringVar(&cfg.Audit.S3.Bucket, "audit-bucket", cfg.Audit.S3.Bucket, "S3 bucket for the audit archive")

	return fs.Parse(args)
}
