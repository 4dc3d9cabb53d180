package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/chatgate"
	"github.com/MrEthical07/chatgate/auditsink"
	"github.com/MrEthical07/chatgate/chat"
	"github.com/MrEthical07/chatgate/credstore"
	"github.com/MrEthical07/chatgate/httpapi"
	"github.com/MrEthical07/chatgate/internal/appconfig"
	"github.com/MrEthical07/chatgate/internal/logging"
	"github.com/MrEthical07/chatgate/mail"
	"github.com/MrEthical07/chatgate/metrics/export/prometheus"
	"github.com/MrEthical07/chatgate/middleware"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

// App owns every long-lived resource of the server process.
type App struct {
	config *appconfig.Config
	logger logging.Logger
	engine *chatgate.Engine
	server *http.Server

	closers []func() error
}

// NewApp wires the engine and HTTP server from cfg. out receives mail when no
// SMTP host is configured.
func NewApp(ctx context.Context, cfg *appconfig.Config, logger logging.Logger, out io.Writer) (_ *App, err error) {
	app := &App{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	rdb, err := app.openRedis(ctx)
	if err != nil {
		return nil, err
	}

	creds, err := app.openCredentials(ctx)
	if err != nil {
		return nil, err
	}

	mailer, err := newMailer(cfg, out)
	if err != nil {
		return nil, err
	}

	builder := chatgate.New().
		WithConfig(cfg.Engine()).
		WithRedis(rdb).
		WithCredentialStore(creds).
		WithMailSender(mailer).
		WithLogger(logger)

	if cfg.Audit.Enabled {
		sink, err := app.newAuditSink(ctx)
		if err != nil {
			return nil, err
		}
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("engine build: %w", err)
	}
	app.engine = engine
	app.closers = append(app.closers, engine.Close)

	api := httpapi.New(engine, newResponder(cfg), logger, httpapi.Config{
		SecureCookies: cfg.SecureCookies,
		Throttle: middleware.ThrottleConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSec,
			Burst:             cfg.RateLimit.Burst,
		},
		Metrics: prometheus.NewExporter(engine).Handler(),
	})

	app.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return app, nil
}

func (app *App) openRedis(ctx context.Context) (redis.UniversalClient, error) {
	opts := &redis.UniversalOptions{
		Addrs:    []string{app.config.Redis.Addr},
		Password: app.config.Redis.Password,
		DB:       app.config.Redis.DB,
	}
	if app.config.Redis.Embedded {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start embedded redis: %w", err)
		}
		app.closers = append(app.closers, func() error { mr.Close(); return nil })
		opts = &redis.UniversalOptions{Addrs: []string{mr.Addr()}}
		app.logger.Warn(ctx, "using embedded redis; state is lost on restart", "addr", mr.Addr())
	}

	client := redis.NewUniversalClient(opts)
	app.closers = append(app.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (app *App) openCredentials(ctx context.Context) (chatgate.CredentialStore, error) {
	if app.config.Database.Driver == "memory" {
		app.logger.Warn(ctx, "using in-memory credential store; accounts are lost on restart")
		return credstore.NewMemoryStore(), nil
	}
	db, store, err := credstore.Open(ctx, app.config.Database.Driver, app.config.Database.DSN)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, db.Close)
	return store, nil
}

func (app *App) newAuditSink(ctx context.Context) (chatgate.AuditSink, error) {
	console := chatgate.NewJSONWriterSink(os.Stdout)
	if app.config.Audit.S3.Bucket == "" {
		return console, nil
	}

	s3cfg := auditsink.S3Config{
		Bucket:          app.config.Audit.S3.Bucket,
		Prefix:          app.config.Audit.S3.Prefix,
		Region:          app.config.Audit.S3.Region,
		Endpoint:        app.config.Audit.S3.Endpoint,
		AccessKeyID:     app.config.Audit.S3.AccessKeyID,
		SecretAccessKey: app.config.Audit.S3.SecretAccessKey,
		BatchSize:       app.config.Audit.S3.BatchSize,
	}
	client, err := auditsink.NewS3Client(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	archive, err := auditsink.NewS3Sink(client, s3cfg, app.logger.With("component", "audit_s3"))
	if err != nil {
		return nil, err
	}
	return chatgate.MultiSink{console, archive}, nil
}

func newMailer(cfg *appconfig.Config, out io.Writer) (chatgate.MailSender, error) {
	if cfg.Mail.Host == "" {
		return mail.NewWriterSender(out, cfg.Mail.From, 10*time.Minute), nil
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:       cfg.Mail.Host,
		Port:       cfg.Mail.Port,
		Username:   cfg.Mail.Username,
		Password:   cfg.Mail.Password,
		From:       cfg.Mail.From,
		RequireTLS: cfg.Mail.RequireTLS,
	})
}

func newResponder(cfg *appconfig.Config) chatgate.Responder {
	if cfg.Chat.BaseURL == "" {
		return chat.StaticResponder{}
	}
	return chat.NewClient(chat.Config{
		BaseURL:      cfg.Chat.BaseURL,
		Model:        cfg.Chat.Model,
		SystemPrompt: cfg.Chat.SystemPrompt,
		Timeout:      cfg.Chat.Timeout,
	})
}

// Handler exposes the routed HTTP handler.
func (app *App) Handler() http.Handler {
	return app.server.Handler
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then drains
// in-flight requests.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "listening", "addr", app.server.Addr)
		errCh <- app.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.server.Shutdown(shutdownCtx)
}

// Close releases resources in reverse order of acquisition.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}
