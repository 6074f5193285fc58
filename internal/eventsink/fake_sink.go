package eventsink

import (
	"context"
	"sync"
)

// FakeSink is an in-memory EventSink stand-in for tests, avoiding a real
// network dependency in unit tests.
type FakeSink struct {
	mu        sync.Mutex
	published []Published
}

// Published records one call to Publish.
type Published struct {
	EventType string
	Payload   interface{}
}

// NewFakeSink returns an empty FakeSink.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// Publish implements EventSink by recording the call.
func (f *FakeSink) Publish(_ context.Context, eventType string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, Published{EventType: eventType, Payload: payload})
	return nil
}

// PublishAsync implements EventSink synchronously (no goroutine, no
// error): tests observing Events() right after a call need the record to
// already be there, not racing a background send.
func (f *FakeSink) PublishAsync(eventType string, payload interface{}) {
	_ = f.Publish(context.Background(), eventType, payload)
}

// Events returns a copy of every event published so far.
func (f *FakeSink) Events() []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Published, len(f.published))
	copy(out, f.published)
	return out
}
