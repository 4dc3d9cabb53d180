package chatgate

import (
	"context"
	"time"

	"github.com/MrEthical07/chatgate/credstore"
)

// CredentialRecord is the persisted credential for one email.
type CredentialRecord = credstore.Record

// CredentialStore persists credential records. Find returns
// credstore.ErrNotFound for unknown emails and Create returns
// credstore.ErrDuplicate when the email is taken.
//
// Implementations: credstore.SQLStore, credstore.MemoryStore.
type CredentialStore interface {
	Find(ctx context.Context, email string) (*CredentialRecord, error)
	Create(ctx context.Context, rec *CredentialRecord) error
	MarkVerified(ctx context.Context, email string) error
	UpdateVerifier(ctx context.Context, email, verifier string) error
}

// MailSender delivers one-time codes and verification links.
//
// Implementations: mail.SMTPSender, mail.WriterSender.
type MailSender interface {
	SendCode(ctx context.Context, to, code string) error
	SendVerification(ctx context.Context, to, link string) error
}

// Responder produces chat replies for authenticated users.
//
// Implementations: chat.Client, chat.StaticResponder.
type Responder interface {
	Respond(ctx context.Context, identity, message string) (string, error)
}

// RegisterResult describes a completed registration.
type RegisterResult struct {
	Identity         string
	VerificationSent bool
	Verified         bool
}

// LoginResult describes an issued challenge. The code itself is only ever
// handed to the MailSender.
type LoginResult struct {
	Identity  string
	ExpiresAt time.Time
}

// VerifyResult carries the session token created by a successful
// VerifyChallenge.
type VerifyResult struct {
	Identity     string
	SessionToken string
	IdleTimeout  time.Duration
}

// SessionInfo is returned by ValidateSession.
type SessionInfo struct {
	Identity     string
	CreatedAt    time.Time
	LastActivity time.Time
}
