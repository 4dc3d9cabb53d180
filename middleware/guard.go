package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/chatgate"
)

const (
	// SessionCookie carries the session token set after code verification.
	SessionCookie = "session_token"
	// CSRFCookie carries the double-submit value readable by the page script.
	CSRFCookie = "csrf_token"
	// CSRFHeader must echo CSRFCookie on unsafe cookie-authenticated requests.
	CSRFHeader = "X-CSRF-Token"
)

// SessionValidator is satisfied by *chatgate.Engine.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*chatgate.SessionInfo, error)
}

type sessionContextKey struct{}
type tokenContextKey struct{}

// SessionFromContext returns the session resolved by Guard.
func SessionFromContext(ctx context.Context) (*chatgate.SessionInfo, bool) {
	info, ok := ctx.Value(sessionContextKey{}).(*chatgate.SessionInfo)
	return info, ok
}

// TokenFromContext returns the raw session token Guard validated.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	return token, ok && token != ""
}

// Guard rejects requests without a live session. The token is read from the
// Authorization header first and the session cookie second; a cookie-borne
// token on an unsafe method also needs a matching CSRF header.
func Guard(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				writeError(w, http.StatusInternalServerError, MsgInternal)
				return
			}

			token, fromCookie := sessionToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, MsgLoginRequired)
				return
			}
			if fromCookie && !safeMethod(r.Method) && !csrfMatches(r) {
				writeError(w, http.StatusForbidden, MsgRequestRejected)
				return
			}

			info, err := validator.ValidateSession(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, chatgate.ErrSessionExpired):
					writeError(w, http.StatusUnauthorized, MsgSessionExpired)
				case errors.Is(err, chatgate.ErrUnavailable), errors.Is(err, chatgate.ErrEngineNotReady):
					writeError(w, http.StatusInternalServerError, MsgInternal)
				default:
					writeError(w, http.StatusUnauthorized, MsgLoginRequired)
				}
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, info)
			ctx = context.WithValue(ctx, tokenContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, false
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func csrfMatches(r *http.Request) bool {
	c, err := r.Cookie(CSRFCookie)
	if err != nil || c.Value == "" {
		return false
	}
	header := r.Header.Get(CSRFHeader)
	if header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(header)) == 1
}
