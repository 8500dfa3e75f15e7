package kafka

import (
	"context"
	"sync"

	kafkago "github.com/segmentio/kafka-go"
)

// FakeWriter records written messages for test assertions.
type FakeWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	closed   bool

	// WriteError, if set, is returned by WriteMessages.
	WriteError error
}

// WriteMessages records msgs.
func (f *FakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

// Close marks the writer closed.
func (f *FakeWriter) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Messages returns a copy of everything written.
func (f *FakeWriter) Messages() []kafkago.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafkago.Message(nil), f.messages...)
}

// Closed reports whether Close was called.
func (f *FakeWriter) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
