package mail

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidAddress is returned for empty addresses or addresses carrying
// header-breaking characters.
var ErrInvalidAddress = errors.New("invalid mail address")

// Message is a plain-text mail.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// CodeMessage builds the one-time code mail.
func CodeMessage(from, to, code string, ttl time.Duration) Message {
	return Message{
		From:    from,
		To:      to,
		Subject: "Your login code",
		Body: fmt.Sprintf(
			"Your login code is %s.\r\n\r\nIt expires in %d minutes. If you did not try to log in, you can ignore this message.\r\n",
			code, int(ttl.Minutes()),
		),
	}
}

// VerificationMessage builds the email verification mail.
func VerificationMessage(from, to, link string) Message {
	return Message{
		From:    from,
		To:      to,
		Subject: "Verify your email",
		Body:    "Please click the link below to verify your email:\r\n\r\n" + link + "\r\n",
	}
}

func validAddress(addr string) bool {
	return addr != "" && !strings.ContainsAny(addr, "\r\n<>")
}

func (m Message) validate() error {
	if !validAddress(m.From) || !validAddress(m.To) {
		return ErrInvalidAddress
	}
	if strings.ContainsAny(m.Subject, "\r\n") {
		return errors.New("invalid mail subject")
	}
	return nil
}

// Bytes renders m as an RFC 5322 message with CRLF line endings.
func (m Message) Bytes(now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", now.UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@chatgate>\r\n", uuid.NewString())
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(m.Body, "\r\n", "\n"), "\n", "\r\n"))
	return b.Bytes()
}
