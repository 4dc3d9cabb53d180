package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/chatgate/cryptox"
)

// Public error messages shared with the HTTP handlers.
const (
	MsgLoginRequired   = "Login required"
	MsgSessionExpired  = "Session expired, please log in again"
	MsgRequestRejected = "Request could not be verified"
	MsgTooManyRequests = "Too many attempts, please try again later"
	MsgInternal        = "Internal server error"
)

// WriteJSON writes v with status as an application/json body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg} after redacting msg.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": cryptox.Redact(msg)})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	WriteError(w, status, msg)
}
