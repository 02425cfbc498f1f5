package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

type delivery struct {
	To    ConnID // empty for broadcasts
	Event *Event
}

// recordingTransport captures every outbound event in order.
type recordingTransport struct {
	mu     sync.Mutex
	sent   []delivery
	closed map[ConnID]bool
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{closed: make(map[ConnID]bool)}
}

var errConnGone = errors.New("connection gone")

func (t *recordingTransport) SendTo(id ConnID, event *Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed[id] {
		return errConnGone
	}
	t.sent = append(t.sent, delivery{To: id, Event: event})
	return nil
}

func (t *recordingTransport) Broadcast(event *Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, delivery{Event: event})
}

func (t *recordingTransport) deliveries() []delivery {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]delivery, len(t.sent))
	copy(out, t.sent)
	return out
}

func (t *recordingTransport) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
}

type recordingLog struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

func (l *recordingLog) Append(_ context.Context, msg Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.messages = append(l.messages, msg)
	return nil
}

func (l *recordingLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

var fixedNow = time.Date(2024, 1, 15, 13, 45, 2, 0, time.UTC)

func newTestRouter() (*Router, *recordingTransport, *recordingLog) {
	tr := newRecordingTransport()
	log := &recordingLog{}
	r := NewRouter(NewRegistry(), tr, log, WithClock(func() time.Time { return fixedNow }))
	return r, tr, log
}
