package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/chatgate"
	"github.com/MrEthical07/chatgate/internal/logging"
	"github.com/MrEthical07/chatgate/middleware"
)

const defaultMaxBodyBytes = 64 << 10

// Auth is the engine surface the handlers call. *chatgate.Engine implements it.
type Auth interface {
	middleware.SessionValidator

	Register(ctx context.Context, email, pw string) (*chatgate.RegisterResult, error)
	Login(ctx context.Context, email, pw string) (*chatgate.LoginResult, error)
	VerifyChallenge(ctx context.Context, email, code string) (*chatgate.VerifyResult, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, token string) (int, error)
	ConfirmEmail(ctx context.Context, token string) (string, error)
	ResendVerification(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error
	Ping(ctx context.Context) error
}

// Config controls the HTTP boundary.
type Config struct {
	// SecureCookies marks session and CSRF cookies Secure. Requests over TLS
	// always get Secure cookies.
	SecureCookies bool
	MaxBodyBytes  int64
	Throttle      middleware.ThrottleConfig
	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
}

// Server routes the JSON API onto an Auth engine and a chat Responder.
type Server struct {
	auth      Auth
	responder chatgate.Responder
	logger    logging.Logger
	cfg       Config
	throttle  *middleware.Throttle
}

func New(auth Auth, responder chatgate.Responder, logger logging.Logger, cfg Config) *Server {
	if logger == nil {
		logger = logging.Nop{}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{
		auth:      auth,
		responder: responder,
		logger:    logger,
		cfg:       cfg,
		throttle:  middleware.NewThrottle(cfg.Throttle),
	}
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// ---------- public ----------
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/verify-mfa", s.handleVerifyMFA)
	mux.HandleFunc("GET /api/verify-email", s.handleVerifyEmail)
	mux.HandleFunc("POST /api/resend-verification", s.handleResendVerification)

	// ---------- session required ----------
	guard := middleware.Guard(s.auth)
	mux.Handle("POST /api/chat", guard(http.HandlerFunc(s.handleChat)))
	mux.Handle("POST /api/logout", guard(http.HandlerFunc(s.handleLogout)))
	mux.Handle("POST /api/logout-all", guard(http.HandlerFunc(s.handleLogoutAll)))
	mux.Handle("POST /api/change-password", guard(http.HandlerFunc(s.handleChangePassword)))

	// ---------- operations ----------
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		mux.Handle("GET /metrics", s.cfg.Metrics)
	}

	var h http.Handler = mux
	h = s.throttle.Middleware(h)
	h = s.logRequests(h)
	h = middleware.RequestContext(h)
	return h
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chatgate.RequestIDFromContext(r.Context()),
		)
	})
}
