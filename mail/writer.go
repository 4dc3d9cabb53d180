package mail

import (
	"context"
	"io"
	"sync"
	"time"
)

// WriterSender writes every message to w.
type WriterSender struct {
	mu      sync.Mutex
	w       io.Writer
	from    string
	codeTTL time.Duration
}

func NewWriterSender(w io.Writer, from string, codeTTL time.Duration) *WriterSender {
	if from == "" {
		from = "chatgate@localhost"
	}
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	return &WriterSender{w: w, from: from, codeTTL: codeTTL}
}

func (s *WriterSender) SendCode(ctx context.Context, to, code string) error {
	return s.send(CodeMessage(s.from, to, code, s.codeTTL))
}

func (s *WriterSender) SendVerification(ctx context.Context, to, link string) error {
	return s.send(VerificationMessage(s.from, to, link))
}

func (s *WriterSender) send(msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(msg.Bytes(time.Now())); err != nil {
		return err
	}
	_, err := io.WriteString(s.w, "\r\n.\r\n")
	return err
}
