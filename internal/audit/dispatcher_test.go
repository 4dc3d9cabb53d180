package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []Event
}

func (s *blockingSink) Emit(_ context.Context, e Event) {
	<-s.release
	s.mu.Lock()
	s.got = append(s.got, e)
	s.mu.Unlock()
}

type flushSink struct {
	emitted int
	flushed int
	err     error
}

func (s *flushSink) Emit(context.Context, Event) { s.emitted++ }

func (s *flushSink) Flush(context.Context) error {
	s.flushed++
	return s.err
}

func TestDisabledDispatcherIsNilSafe(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	if err := d.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher drops nothing")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink and buffer of one")
	}

	close(sink.release)
	_ = d.Close()
}

func TestDispatcherDrainsAndFlushesOnClose(t *testing.T) {
	sink := &flushSink{err: errors.New("upload failed")}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "logout"})
	}

	if err := d.Close(); err == nil || err.Error() != "upload failed" {
		t.Fatalf("expected flush error surfaced, got %v", err)
	}
	if sink.emitted != 5 || sink.flushed != 1 {
		t.Fatalf("expected 5 emitted and 1 flush, got %d/%d", sink.emitted, sink.flushed)
	}

	// Second close is a no-op and keeps the first result.
	if err := d.Close(); err == nil {
		t.Fatal("expected repeated Close to return the same flush error")
	}
	d.Emit(context.Background(), Event{EventType: "late"})
	if sink.emitted != 5 {
		t.Fatal("emit after close must be ignored")
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{ID: "1", EventType: "register", Timestamp: time.Unix(0, 0).UTC(), Success: true})
	sink.Emit(context.Background(), Event{ID: "2", EventType: "login", Error: "rate_limited"})

	sc := bufio.NewScanner(&buf)
	var lines []Event
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line is not JSON: %v", err)
		}
		lines = append(lines, e)
	}
	if len(lines) != 2 || lines[0].EventType != "register" || lines[1].Error != "rate_limited" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a := NewChannelSink(2)
	b := &flushSink{}
	m := MultiSink{a, nil, b}

	m.Emit(context.Background(), Event{EventType: "x"})
	if err := m.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	select {
	case e := <-a.Events():
		if e.EventType != "x" {
			t.Fatalf("unexpected event %+v", e)
		}
	default:
		t.Fatal("channel sink did not receive event")
	}
	if b.emitted != 1 || b.flushed != 1 {
		t.Fatalf("flush sink got %d/%d", b.emitted, b.flushed)
	}
}
