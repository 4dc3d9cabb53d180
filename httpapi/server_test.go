package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/MrEthical07/chatgate"
	"github.com/MrEthical07/chatgate/chat"
	"github.com/MrEthical07/chatgate/credstore"
	"github.com/MrEthical07/chatgate/middleware"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	email = "alice@example.com"
	pass  = "Correct-Horse-42"
)

type outbox struct {
	mu    sync.Mutex
	codes map[string]string
	links map[string]string
}

func (o *outbox) SendCode(_ context.Context, to, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes[to] = code
	return nil
}

func (o *outbox) SendVerification(_ context.Context, to, link string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.links[to] = link
	return nil
}

func (o *outbox) code(to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[to]
}

func (o *outbox) link(to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.links[to]
}

type failingResponder struct{}

func (failingResponder) Respond(context.Context, string, string) (string, error) {
	return "", errors.New("model backend refused api_key=abc")
}

type fixture struct {
	srv    *httptest.Server
	mr     *miniredis.Miniredis
	mail   *outbox
	engine *chatgate.Engine
}

func newFixture(t *testing.T, responder chatgate.Responder) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := chatgate.DefaultConfig()
	cfg.Envelope.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	box := &outbox{codes: map[string]string{}, links: map[string]string{}}
	engine, err := chatgate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(credstore.NewMemoryStore()).
		WithMailSender(box).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	api := New(engine, responder, nil, Config{
		Throttle: middleware.ThrottleConfig{RequestsPerSecond: 1000, Burst: 1000},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("chatgate_up 1\n"))
		}),
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, mr: mr, mail: box, engine: engine}
}

type response struct {
	status  int
	body    map[string]any
	cookies []*http.Cookie
	header  http.Header
}

func (f *fixture) do(t *testing.T, method, path string, body any, opts ...func(*http.Request)) response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, o := range opts {
		o(req)
	}

	res, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	out := response{status: res.StatusCode, cookies: res.Cookies(), header: res.Header}
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(res.Body).Decode(&out.body))
	}
	return out
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (f *fixture) registerAndVerify(t *testing.T) {
	t.Helper()
	res := f.do(t, http.MethodPost, "/api/register", map[string]string{"email": email, "password": pass})
	require.Equal(t, http.StatusCreated, res.status)

	link, err := url.Parse(f.mail.link(email))
	require.NoError(t, err)
	res = f.do(t, http.MethodGet, "/api/verify-email?"+link.RawQuery, nil)
	require.Equal(t, http.StatusOK, res.status)
}

func (f *fixture) login(t *testing.T) response {
	t.Helper()
	res := f.do(t, http.MethodPost, "/api/login", map[string]string{"email": email, "password": pass})
	require.Equal(t, http.StatusOK, res.status)

	res = f.do(t, http.MethodPost, "/api/verify-mfa", map[string]string{"email": email, "mfa_code": f.mail.code(email)})
	require.Equal(t, http.StatusOK, res.status)
	return res
}

func TestRegisterEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	res := f.do(t, http.MethodPost, "/api/register", map[string]string{"email": email, "password": pass})
	require.Equal(t, http.StatusCreated, res.status)
	assert.Contains(t, res.body["message"], "check your email")
	assert.NotEmpty(t, res.header.Get(middleware.RequestIDHeader))

	res = f.do(t, http.MethodPost, "/api/register", map[string]string{"email": email, "password": pass})
	require.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Email already registered", res.body["error"])

	res = f.do(t, http.MethodPost, "/api/register", map[string]string{"email": "bob@example.com", "password": "short"})
	require.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Passphrase must be at least 8 characters long", res.body["error"])

	res = f.do(t, http.MethodPost, "/api/register", "not an object")
	require.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Invalid request", res.body["error"])
}

func TestLoginRequiresVerification(t *testing.T) {
	f := newFixture(t, nil)

	res := f.do(t, http.MethodPost, "/api/register", map[string]string{"email": email, "password": pass})
	require.Equal(t, http.StatusCreated, res.status)

	res = f.do(t, http.MethodPost, "/api/login", map[string]string{"email": email, "password": pass})
	require.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Please verify your email first", res.body["error"])
}

func TestLoginFailuresAreUniform(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAndVerify(t)

	wrong := f.do(t, http.MethodPost, "/api/login", map[string]string{"email": email, "password": "Wrong-Pass-1"})
	unknown := f.do(t, http.MethodPost, "/api/login", map[string]string{"email": "ghost@example.com", "password": pass})

	require.Equal(t, http.StatusUnauthorized, wrong.status)
	require.Equal(t, http.StatusUnauthorized, unknown.status)
	assert.Equal(t, wrong.body, unknown.body)
	assert.Equal(t, "Invalid login details", wrong.body["error"])
}

func TestLoginRateLimitReturns429(t *testing.T) {
	f := newFixture(t, nil)

	for i := 0; i < 5; i++ {
		res := f.do(t, http.MethodPost, "/api/login", map[string]string{"email": "nonexistent@example.com", "password": "Wrong-Pass-1"})
		require.Equal(t, http.StatusUnauthorized, res.status)
	}
	res := f.do(t, http.MethodPost, "/api/login", map[string]string{"email": "nonexistent@example.com", "password": "Wrong-Pass-1"})
	require.Equal(t, http.StatusTooManyRequests, res.status)
	assert.Contains(t, res.body["error"], "Too many attempts")
}

func TestFullLoginAndChat(t *testing.T) {
	f := newFixture(t, chat.StaticResponder{})
	f.registerAndVerify(t)
	res := f.login(t)

	token, _ := res.body["session_token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "Login successful", res.body["message"])

	var sessionCookie *http.Cookie
	for _, c := range res.cookies {
		if c.Name == middleware.SessionCookie {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)
	assert.Equal(t, token, sessionCookie.Value)

	chatRes := f.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "hello"}, bearer(token))
	require.Equal(t, http.StatusOK, chatRes.status)
	assert.Equal(t, chat.Placeholder, chatRes.body["response"])

	chatRes = f.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "   "}, bearer(token))
	require.Equal(t, http.StatusBadRequest, chatRes.status)

	out := f.do(t, http.MethodPost, "/api/logout", nil, bearer(token))
	require.Equal(t, http.StatusOK, out.status)

	chatRes = f.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "hello"}, bearer(token))
	require.Equal(t, http.StatusUnauthorized, chatRes.status)
	assert.Equal(t, "Session expired, please log in again", chatRes.body["error"])
}

func TestChatWithCookieNeedsCSRF(t *testing.T) {
	f := newFixture(t, chat.StaticResponder{Reply: "hi"})
	f.registerAndVerify(t)
	res := f.login(t)

	token, _ := res.body["session_token"].(string)
	csrf, _ := res.body["csrf_token"].(string)
	require.NotEmpty(t, csrf)

	withCookies := func(header string) func(*http.Request) {
		return func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
			r.AddCookie(&http.Cookie{Name: middleware.CSRFCookie, Value: csrf})
			if header != "" {
				r.Header.Set(middleware.CSRFHeader, header)
			}
		}
	}

	denied := f.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "hello"}, withCookies(""))
	require.Equal(t, http.StatusForbidden, denied.status)

	ok := f.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "hello"}, withCookies(csrf))
	require.Equal(t, http.StatusOK, ok.status)
	assert.Equal(t, "hi", ok.body["response"])
}

func TestChatRequiresLogin(t *testing.T) {
	f := newFixture(t, chat.StaticResponder{})

	res := f.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "hello"})
	require.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Login required", res.body["error"])
}

func TestChatBackendFailureIs500(t *testing.T) {
	f := newFixture(t, failingResponder{})
	f.registerAndVerify(t)
	token, _ := f.login(t).body["session_token"].(string)

	res := f.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "hello"}, bearer(token))
	require.Equal(t, http.StatusInternalServerError, res.status)
	errMsg, _ := res.body["error"].(string)
	assert.NotContains(t, errMsg, "abc")
}

func TestChatRejectsMissingMessage(t *testing.T) {
	f := newFixture(t, failingResponder{})
	f.registerAndVerify(t)
	token, _ := f.login(t).body["session_token"].(string)

	for _, body := range []any{
		map[string]any{"message": nil},
		map[string]any{"message": ""},
		map[string]any{},
	} {
		res := f.do(t, http.MethodPost, "/api/chat", body, bearer(token))
		require.Equal(t, http.StatusBadRequest, res.status, "body %v", body)
		assert.Equal(t, "Message is required", res.body["error"])
	}
}

func TestVerifyMFAFailures(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAndVerify(t)

	res := f.do(t, http.MethodPost, "/api/verify-mfa", map[string]string{"email": email, "mfa_code": "123456"})
	require.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "No pending verification, please log in again", res.body["error"])

	res = f.do(t, http.MethodPost, "/api/login", map[string]string{"email": email, "password": pass})
	require.Equal(t, http.StatusOK, res.status)

	wrong := "000000"
	if f.mail.code(email) == wrong {
		wrong = "111111"
	}
	res = f.do(t, http.MethodPost, "/api/verify-mfa", map[string]string{"email": email, "mfa_code": wrong})
	require.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Invalid MFA code", res.body["error"])
}

func TestVerifyEmailRejectsBadLink(t *testing.T) {
	f := newFixture(t, nil)

	res := f.do(t, http.MethodGet, "/api/verify-email?token=nope", nil)
	require.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Invalid or expired verification link", res.body["error"])
}

func TestResendVerificationIsNeutral(t *testing.T) {
	f := newFixture(t, nil)

	known := f.do(t, http.MethodPost, "/api/register", map[string]string{"email": email, "password": pass})
	require.Equal(t, http.StatusCreated, known.status)

	a := f.do(t, http.MethodPost, "/api/resend-verification", map[string]string{"email": email})
	b := f.do(t, http.MethodPost, "/api/resend-verification", map[string]string{"email": "ghost@example.com"})
	require.Equal(t, http.StatusOK, a.status)
	require.Equal(t, http.StatusOK, b.status)
	assert.Equal(t, a.body, b.body)
}

func TestChangePasswordEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAndVerify(t)
	token, _ := f.login(t).body["session_token"].(string)

	res := f.do(t, http.MethodPost, "/api/change-password", map[string]string{
		"current_password": pass,
		"new_password":     pass,
	}, bearer(token))
	require.Equal(t, http.StatusBadRequest, res.status)

	res = f.do(t, http.MethodPost, "/api/change-password", map[string]string{
		"current_password": pass,
		"new_password":     "Battery-Staple-77",
	}, bearer(token))
	require.Equal(t, http.StatusOK, res.status)
}

func TestChangePasswordGuessingReturns429(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAndVerify(t)
	token, _ := f.login(t).body["session_token"].(string)

	guess := map[string]string{"current_password": "Wrong-Pass-99", "new_password": "Battery-Staple-77"}
	for i := 0; i < 5; i++ {
		res := f.do(t, http.MethodPost, "/api/change-password", guess, bearer(token))
		require.Equal(t, http.StatusUnauthorized, res.status)
	}

	res := f.do(t, http.MethodPost, "/api/change-password", map[string]string{
		"current_password": pass,
		"new_password":     "Battery-Staple-77",
	}, bearer(token))
	require.Equal(t, http.StatusTooManyRequests, res.status)
	assert.Equal(t, middleware.MsgTooManyRequests, res.body["error"])
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, nil)

	res := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "ok", res.body["status"])

	mres, err := f.srv.Client().Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer mres.Body.Close()
	require.Equal(t, http.StatusOK, mres.StatusCode)

	f.mr.Close()
	res = f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusServiceUnavailable, res.status)
}

func TestErrorResponseMessagesAreRedactionSafe(t *testing.T) {
	errs := []error{
		chatgate.ErrInvalidRequest,
		chatgate.ErrAlreadyRegistered,
		chatgate.ErrInvalidCredentials,
		chatgate.ErrEmailUnverified,
		chatgate.ErrRateLimited,
		chatgate.ErrNoPendingChallenge,
		chatgate.ErrInvalidCode,
		chatgate.ErrChallengeLocked,
		chatgate.ErrSessionExpired,
		chatgate.ErrInvalidVerificationToken,
		chatgate.ErrPasswordReuse,
		chatgate.ErrUnavailable,
	}
	for _, err := range errs {
		_, msg := errorResponse(err)
		rec := httptest.NewRecorder()
		middleware.WriteError(rec, http.StatusBadRequest, msg)
		assert.NotContains(t, rec.Body.String(), "[REDACTED]", "message for %v", err)
	}
}
