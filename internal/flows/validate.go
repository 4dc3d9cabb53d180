package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/chatgate/session"
)

// SessionDeps captures session validation and logout.
type SessionDeps struct {
	Common

	Sessions         SessionStore
	IdleTimeout      time.Duration
	AbsoluteLifetime time.Duration
}

// RunValidateSession loads the session for token, enforces the idle and
// absolute limits against the flow clock, and slides last activity.
func RunValidateSession(ctx context.Context, token string, deps SessionDeps) (*session.Session, error) {
	deps.fill()
	if deps.Sessions == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if token == "" {
		return nil, deps.Errors.SessionExpired
	}

	sess, err := deps.Sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrCorrupt) {
			deps.MetricInc(deps.Metrics.SessionExpired)
			return nil, deps.Errors.SessionExpired
		}
		deps.Warn(ctx, "session lookup failed", "error", err)
		return nil, unavailable(&deps.Common, err)
	}

	now := deps.Now()
	expired := !sess.Authenticated || sess.IdleFor(now) >= deps.IdleTimeout
	if deps.AbsoluteLifetime > 0 && now.Sub(sess.CreatedAt) >= deps.AbsoluteLifetime {
		expired = true
	}
	if expired {
		if _, err := deps.Sessions.Delete(ctx, token); err != nil {
			deps.Warn(ctx, "expired session delete failed", "error", err)
		}
		deps.MetricInc(deps.Metrics.SessionExpired)
		deps.EmitAudit(ctx, deps.Events.SessionExpired, false, sess.Identity, session.ID(token), deps.Errors.SessionExpired, nil)
		return nil, deps.Errors.SessionExpired
	}

	sess.LastActivity = now
	ttl := deps.IdleTimeout
	if deps.AbsoluteLifetime > 0 {
		if remaining := deps.AbsoluteLifetime - now.Sub(sess.CreatedAt); remaining < ttl {
			ttl = remaining
		}
	}
	if err := deps.Sessions.Touch(ctx, token, sess, ttl); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			deps.MetricInc(deps.Metrics.SessionExpired)
			return nil, deps.Errors.SessionExpired
		}
		deps.Warn(ctx, "session touch failed", "error", err)
		return nil, unavailable(&deps.Common, err)
	}

	deps.MetricInc(deps.Metrics.SessionValidated)
	return sess, nil
}
