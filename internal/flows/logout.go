package flows

import (
	"context"
	"strconv"

	"github.com/MrEthical07/chatgate/session"
)

// RunLogout deletes the session for token. Unknown tokens are not an error.
func RunLogout(ctx context.Context, token string, deps SessionDeps) error {
	deps.fill()
	if deps.Sessions == nil {
		return deps.Errors.EngineNotReady
	}
	if token == "" {
		return nil
	}

	deleted, err := deps.Sessions.Delete(ctx, token)
	if err != nil {
		deps.Warn(ctx, "session delete failed", "error", err)
		return unavailable(&deps.Common, err)
	}
	if deleted {
		deps.MetricInc(deps.Metrics.Logout)
		deps.EmitAudit(ctx, deps.Events.LogoutSession, true, "", session.ID(token), nil, nil)
	}
	return nil
}

// RunLogoutAll validates token and deletes every session of its identity,
// including the current one. It returns the number of sessions removed.
func RunLogoutAll(ctx context.Context, token string, deps SessionDeps) (int, error) {
	sess, err := RunValidateSession(ctx, token, deps)
	if err != nil {
		return 0, err
	}
	deps.fill()

	n, err := deps.Sessions.DeleteAllForIdentity(ctx, sess.Identity, "")
	if err != nil {
		deps.Warn(ctx, "session revoke-all failed", "error", err)
		return 0, unavailable(&deps.Common, err)
	}

	deps.MetricInc(deps.Metrics.LogoutAll)
	deps.EmitAudit(ctx, deps.Events.LogoutAll, true, sess.Identity, "", nil, func() map[string]string {
		return map[string]string{"sessions": strconv.Itoa(n)}
	})
	return n, nil
}
