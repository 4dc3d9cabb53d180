package chatgate

import (
	"io"

	"github.com/MrEthical07/chatgate/internal/audit"
)

// AuditEvent is one security-relevant outcome. Identity is the normalized
// email; codes, passwords, and session tokens never appear in events.
type AuditEvent = audit.Event

// AuditSink receives events from the dispatcher goroutine.
type AuditSink = audit.Sink

// AuditFlusher is implemented by sinks that buffer; Close flushes them.
type AuditFlusher = audit.Flusher

type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	MultiSink      = audit.MultiSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
