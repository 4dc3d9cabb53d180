package chatgate

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/chatgate/credstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "Correct-Horse-42"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingMailer struct {
	mu    sync.Mutex
	codes map[string][]string
	links map[string][]string
	err   error
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{
		codes: map[string][]string{},
		links: map[string][]string{},
	}
}

func (m *recordingMailer) SendCode(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.codes[to] = append(m.codes[to], code)
	return nil
}

func (m *recordingMailer) SendVerification(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.links[to] = append(m.links[to], link)
	return nil
}

func (m *recordingMailer) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *recordingMailer) codeCount(to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes[to])
}

func (m *recordingMailer) linkCount(to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links[to])
}

func (m *recordingMailer) lastCode(t testing.TB, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := m.codes[to]
	if len(codes) == 0 {
		t.Fatalf("no code mailed to %s", to)
	}
	return codes[len(codes)-1]
}

func (m *recordingMailer) lastLinkToken(t testing.TB, to string) string {
	t.Helper()
	m.mu.Lock()
	links := m.links[to]
	m.mu.Unlock()
	if len(links) == 0 {
		t.Fatalf("no verification link mailed to %s", to)
	}
	u, err := url.Parse(links[len(links)-1])
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	token := u.Query().Get("token")
	if token == "" {
		t.Fatalf("link %q carries no token", links[len(links)-1])
	}
	return token
}

type testEngine struct {
	*Engine
	redis  *miniredis.Miniredis
	creds  *credstore.MemoryStore
	mailer *recordingMailer
	clock  *testClock
	audit  *ChannelSink
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Envelope.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 256
	return cfg
}

func newTestEngine(t testing.TB, mutate func(*Config)) *testEngine {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	te := &testEngine{
		redis:  mr,
		creds:  credstore.NewMemoryStore(),
		mailer: newRecordingMailer(),
		clock:  newTestClock(),
		audit:  NewChannelSink(256),
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(te.creds).
		WithMailSender(te.mailer).
		WithAuditSink(te.audit).
		WithClock(te.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	te.Engine = engine

	t.Cleanup(func() {
		_ = engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return te
}

// registerVerified registers email and confirms it through the mailed link.
func (te *testEngine) registerVerified(t testing.TB, email string) {
	t.Helper()
	ctx := context.Background()
	if _, err := te.Register(ctx, email, testPassword); err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	if _, err := te.ConfirmEmail(ctx, te.mailer.lastLinkToken(t, email)); err != nil {
		t.Fatalf("confirm %s: %v", email, err)
	}
}

// loginSession runs both login steps and returns the session token.
func (te *testEngine) loginSession(t testing.TB, email, pw string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := te.Login(ctx, email, pw); err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	res, err := te.VerifyChallenge(ctx, email, te.mailer.lastCode(t, email))
	if err != nil {
		t.Fatalf("verify challenge %s: %v", email, err)
	}
	return res.SessionToken
}

// drainAudit collects the events delivered so far. It closes the engine's
// dispatcher so every queued event has reached the sink.
func (te *testEngine) drainAudit(t *testing.T) []AuditEvent {
	t.Helper()
	if err := te.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	var events []AuditEvent
	for {
		select {
		case ev := <-te.audit.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}
