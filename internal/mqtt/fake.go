package mqtt

import (
	"github.com/sweeney/chamber-controller/internal/logic"
)

// Message is one publish as the broker would see it.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// FakePublisher records publishes for test assertions. Messages use the
// same topics, QoS and retain flags as RealPublisher.
type FakePublisher struct {
	Events       []logic.Event
	SystemEvents []SystemEvent
	Messages     []Message

	// Returned by Publish and PublishSystem when set. Nothing is recorded.
	PublishError       error
	PublishSystemError error

	Connected bool
	Closed    bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Messages = append(f.Messages, Message{Topic: Topic, Payload: payload})
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Messages = append(f.Messages, Message{Topic: TopicSystem, Payload: payload, QoS: 1, Retained: event.Retained})
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Payloads returns the event payloads in publish order.
func (f *FakePublisher) Payloads() [][]byte {
	return f.payloadsOn(Topic)
}

// SystemPayloads returns the lifecycle payloads in publish order.
func (f *FakePublisher) SystemPayloads() [][]byte {
	return f.payloadsOn(TopicSystem)
}

func (f *FakePublisher) payloadsOn(topic string) [][]byte {
	var out [][]byte
	for _, m := range f.Messages {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

func (f *FakePublisher) EventTypes() []logic.EventType {
	types := make([]logic.EventType, len(f.Events))
	for i, e := range f.Events {
		types[i] = e.Type
	}
	return types
}

func (f *FakePublisher) SystemEventNames() []string {
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}

// Reset clears everything, including injected errors.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}
