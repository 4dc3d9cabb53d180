package session

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Session is the server-side state behind a bearer token.
type Session struct {
	SchemaVersion uint8     `json:"v"`
	Identity      string    `json:"id"`
	CreatedAt     time.Time `json:"c"`
	LastActivity  time.Time `json:"a"`
	Authenticated bool      `json:"ok"`
}

// IdleFor reports how long the session has been idle at now.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}

// ID derives the storage identifier for token.
func ID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
