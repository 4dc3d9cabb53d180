package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PurposeEmailVerification scopes tokens mailed after registration.
const PurposeEmailVerification = "email_verification"

const minKeyBytes = 32

// ErrInvalidToken is returned for any token that fails verification. The
// underlying cause is wrapped for logging.
var ErrInvalidToken = errors.New("invalid link token")

// Config holds signing parameters. Key signs new tokens; VerifyKeys lets
// tokens signed under retired key ids keep verifying until they expire.
type Config struct {
	TTL        time.Duration
	Key        []byte
	KeyID      string
	VerifyKeys map[string][]byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
}

// Claims is the payload of a link token.
type Claims struct {
	Email   string `json:"email"`
	Purpose string `json:"pur"`
	jwt.RegisteredClaims
}

// Manager issues and parses HS256 link tokens.
type Manager struct {
	config Config
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.Key) < minKeyBytes {
		return nil, fmt.Errorf("signing key must be at least %d bytes", minKeyBytes)
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		if len(key) < minKeyBytes {
			return nil, fmt.Errorf("verify key for kid %q too short", kid)
		}
	}
	if len(cfg.VerifyKeys) > 0 && cfg.KeyID == "" {
		return nil, errors.New("KeyID required when VerifyKeys are set")
	}

	return &Manager{config: cfg}, nil
}

// Issue signs a token binding email to purpose, valid from now for the
// configured TTL.
func (m *Manager) Issue(email, purpose string, now time.Time) (string, error) {
	if email == "" || purpose == "" {
		return "", errors.New("email and purpose required")
	}

	claims := Claims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}
	return token.SignedString(m.config.Key)
}

// Parse verifies tokenStr at now and checks that it was issued for purpose.
func (m *Manager) Parse(tokenStr, purpose string, now time.Time) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, m.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose || claims.Email == "" || claims.Email != claims.Subject {
		return nil, fmt.Errorf("%w: purpose or subject mismatch", ErrInvalidToken)
	}
	return claims, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	kid, _ := t.Header["kid"].(string)
	if m.config.KeyID == "" {
		if kid != "" {
			return nil, errors.New("unexpected kid")
		}
		return m.config.Key, nil
	}

	switch {
	case kid == "":
		return nil, errors.New("missing kid")
	case kid == m.config.KeyID:
		return m.config.Key, nil
	}
	if key, ok := m.config.VerifyKeys[kid]; ok {
		return key, nil
	}
	return nil, errors.New("unknown kid")
}
