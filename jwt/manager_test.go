package jwt

import (
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var (
	keyA = []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	keyB = []byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	t0   = time.Unix(1_700_000_000, 0)
)

func newManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Key == nil {
		cfg.Key = keyA
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestIssueParseRoundTrip(t *testing.T) {
	m := newManager(t, Config{Issuer: "chatgate", Audience: "verify"})

	tok, err := m.Issue("a@example.com", PurposeEmailVerification, t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := m.Parse(tok, PurposeEmailVerification, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Email != "a@example.com" || claims.ID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseRejectsExpiredAndWrongPurpose(t *testing.T) {
	m := newManager(t, Config{})
	tok, err := m.Issue("a@example.com", PurposeEmailVerification, t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := m.Parse(tok, PurposeEmailVerification, t0.Add(25*time.Hour)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expiry rejection, got %v", err)
	}
	if _, err := m.Parse(tok, "password_reset", t0); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected purpose rejection, got %v", err)
	}
}

func TestParseRejectsWrongKeyAndAlgorithm(t *testing.T) {
	m := newManager(t, Config{})
	other := newManager(t, Config{Key: keyB})

	tok, _ := other.Issue("a@example.com", PurposeEmailVerification, t0)
	if _, err := m.Parse(tok, PurposeEmailVerification, t0); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature rejection, got %v", err)
	}

	claims := Claims{
		Email:   "a@example.com",
		Purpose: PurposeEmailVerification,
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "a@example.com",
			IssuedAt:  gjwt.NewNumericDate(t0),
			ExpiresAt: gjwt.NewNumericDate(t0.Add(time.Hour)),
		},
	}
	unsigned, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.Parse(unsigned, PurposeEmailVerification, t0); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg none rejection, got %v", err)
	}
}

func TestKeyRotation(t *testing.T) {
	old := newManager(t, Config{Key: keyA, KeyID: "k1"})
	tok, err := old.Issue("a@example.com", PurposeEmailVerification, t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rotated := newManager(t, Config{Key: keyB, KeyID: "k2", VerifyKeys: map[string][]byte{"k1": keyA}})
	if _, err := rotated.Parse(tok, PurposeEmailVerification, t0); err != nil {
		t.Fatalf("expected retired key to verify: %v", err)
	}

	dropped := newManager(t, Config{Key: keyB, KeyID: "k2"})
	if _, err := dropped.Parse(tok, PurposeEmailVerification, t0); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected unknown kid rejection, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	bad := []Config{
		{TTL: 0, Key: keyA},
		{TTL: time.Hour, Key: []byte("short")},
		{TTL: time.Hour, Key: keyA, Leeway: time.Hour},
		{TTL: time.Hour, Key: keyA, VerifyKeys: map[string][]byte{"k1": keyB}},
		{TTL: time.Hour, Key: keyA, KeyID: "k2", VerifyKeys: map[string][]byte{"": keyB}},
	}
	for i, cfg := range bad {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
