package flows

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

const maxEmailLength = 254

// NormalizeEmail returns the identity key for email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether normalized is a bare address.
func ValidEmail(normalized string) bool {
	if normalized == "" || len(normalized) > maxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(normalized, '@')
	return at > 0 && at < len(normalized)-1
}

func unavailable(c *Common, err error) error {
	return fmt.Errorf("%w: %v", c.Errors.Unavailable, err)
}

// consume runs one limiter check. A store failure denies the attempt and is
// returned as unavailable.
func consume(ctx context.Context, c *Common, l Limiter, scope, key string) error {
	if l == nil || key == "" {
		return nil
	}
	allowed, err := l.CheckAndConsume(ctx, key)
	if err != nil {
		c.Warn(ctx, "rate limit store failure", "scope", scope, "error", err)
		return unavailable(c, err)
	}
	if !allowed {
		c.EmitRateLimit(ctx, scope, func() map[string]string {
			return map[string]string{"bucket": key}
		})
		return c.Errors.RateLimited
	}
	return nil
}
