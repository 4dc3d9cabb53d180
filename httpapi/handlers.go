package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/chatgate/cryptox"
	"github.com/MrEthical07/chatgate/middleware"
)

const pingTimeout = 2 * time.Second

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyMFARequest struct {
	Email string `json:"email"`
	Code  string `json:"mfa_code"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type resendRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, msgInvalidRequest)
		return false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, msgInvalidRequest)
		return false
	}
	return true
}

func message(text string) map[string]string {
	return map[string]string{"message": text}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !s.decode(w, r, &body) {
		return
	}

	res, err := s.auth.Register(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeEngineError(r.Context(), w, "register", err)
		return
	}

	msg := msgRegistered
	switch {
	case res.Verified:
		msg = msgRegisteredVerified
	case !res.VerificationSent:
		msg = msgRegisteredNoMail
	}
	middleware.WriteJSON(w, http.StatusCreated, message(msg))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !s.decode(w, r, &body) {
		return
	}

	if _, err := s.auth.Login(r.Context(), body.Email, body.Password); err != nil {
		s.writeEngineError(r.Context(), w, "login", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, message(msgCodeSent))
}

func (s *Server) handleVerifyMFA(w http.ResponseWriter, r *http.Request) {
	var body verifyMFARequest
	if !s.decode(w, r, &body) {
		return
	}

	res, err := s.auth.VerifyChallenge(r.Context(), body.Email, body.Code)
	if err != nil {
		s.writeEngineError(r.Context(), w, "verify_mfa", err)
		return
	}

	csrf, err := cryptox.GenerateToken()
	if err != nil {
		s.writeEngineError(r.Context(), w, "verify_mfa", err)
		return
	}
	s.setSessionCookies(w, r, res.SessionToken, csrf, res.IdleTimeout)

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"message":       msgLoginSuccessful,
		"session_token": res.SessionToken,
		"csrf_token":    csrf,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	info, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, middleware.MsgLoginRequired)
		return
	}

	var body chatRequest
	if !s.decode(w, r, &body) {
		return
	}
	text := strings.TrimSpace(body.Message)
	if text == "" {
		middleware.WriteError(w, http.StatusBadRequest, msgMessageRequired)
		return
	}
	if s.responder == nil {
		middleware.WriteError(w, http.StatusInternalServerError, msgChatUnavailable)
		return
	}

	reply, err := s.responder.Respond(r.Context(), info.Identity, text)
	if err != nil {
		s.logger.Error(r.Context(), "chat backend failed",
			"error", cryptox.Redact(err.Error()),
		)
		middleware.WriteError(w, http.StatusInternalServerError, msgChatUnavailable)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.TokenFromContext(r.Context())
	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.writeEngineError(r.Context(), w, "logout", err)
		return
	}
	s.clearSessionCookies(w, r)
	middleware.WriteJSON(w, http.StatusOK, message(msgLoggedOut))
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.TokenFromContext(r.Context())
	n, err := s.auth.LogoutAll(r.Context(), token)
	if err != nil {
		s.writeEngineError(r.Context(), w, "logout_all", err)
		return
	}
	s.clearSessionCookies(w, r)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"message":  msgLoggedOut,
		"sessions": n,
	})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if _, err := s.auth.ConfirmEmail(r.Context(), token); err != nil {
		s.writeEngineError(r.Context(), w, "verify_email", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, message(msgEmailVerified))
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var body resendRequest
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.auth.ResendVerification(r.Context(), body.Email); err != nil {
		s.writeEngineError(r.Context(), w, "resend_verification", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, message(msgVerificationResent))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var body changePasswordRequest
	if !s.decode(w, r, &body) {
		return
	}
	token, _ := middleware.TokenFromContext(r.Context())
	if err := s.auth.ChangePassword(r.Context(), token, body.CurrentPassword, body.NewPassword); err != nil {
		s.writeEngineError(r.Context(), w, "change_password", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, message(msgPassphraseChanged))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := s.auth.Ping(ctx); err != nil {
		s.logger.Warn(ctx, "health check failed", "error", cryptox.Redact(err.Error()))
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": msgDependencyUnhealthy})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": msgHealthy})
}
