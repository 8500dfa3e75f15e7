package mqtt

import "testing"

func event(b byte) queuedMsg {
	return queuedMsg{topic: Topic, payload: []byte{b}}
}

func lifecycle(b byte) queuedMsg {
	return queuedMsg{topic: TopicSystem, payload: []byte{b}, qos: 1}
}

func payloads(msgs []queuedMsg) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestOutboxEmptyDrain(t *testing.T) {
	if got := newOutbox(4).drain(); got != nil {
		t.Errorf("expected nil, got %d messages", len(got))
	}
}

func TestOutboxKeepsOrder(t *testing.T) {
	o := newOutbox(10)
	o.push(event(1))
	o.push(lifecycle(2))
	o.push(event(3))

	if got := string(payloads(o.drain())); got != "\x01\x02\x03" {
		t.Errorf("order: got %v", []byte(got))
	}
	if o.len() != 0 || o.drain() != nil {
		t.Error("outbox should be empty after drain")
	}
}

func TestOutboxDropsOldestEventFirst(t *testing.T) {
	o := newOutbox(3)
	o.push(lifecycle(1))
	o.push(event(2))
	o.push(event(3))
	o.push(event(4))

	if got := payloads(o.drain()); string(got) != "\x01\x03\x04" {
		t.Errorf("got %v, want [1 3 4]", got)
	}
	if o.dropped != 1 {
		t.Errorf("dropped: got %d, want 1", o.dropped)
	}
}

func TestOutboxDropsOldestLifecycleWhenNoEvents(t *testing.T) {
	o := newOutbox(2)
	o.push(lifecycle(1))
	o.push(lifecycle(2))
	o.push(lifecycle(3))

	if got := payloads(o.drain()); string(got) != "\x02\x03" {
		t.Errorf("got %v, want [2 3]", got)
	}
}

func TestOutboxStaysAtCapacity(t *testing.T) {
	o := newOutbox(5)
	for i := 0; i < 50; i++ {
		o.push(event(byte(i)))
	}
	if o.len() != 5 {
		t.Errorf("len: got %d, want 5", o.len())
	}
	if o.dropped != 45 {
		t.Errorf("dropped: got %d, want 45", o.dropped)
	}
	if got := payloads(o.drain()); got[0] != 45 || got[4] != 49 {
		t.Errorf("expected newest five, got %v", got)
	}
}

func TestOutboxWarnsOncePerOutage(t *testing.T) {
	o := newOutbox(1)
	o.push(event(1))
	o.push(event(2))
	if !o.warned {
		t.Fatal("expected warning flag after overflow")
	}
	o.drain()
	if o.warned {
		t.Error("drain should reset the warning")
	}
}

func TestOutboxMinimumCapacity(t *testing.T) {
	o := newOutbox(0)
	o.push(event(1))
	o.push(event(2))
	if got := payloads(o.drain()); string(got) != "\x02" {
		t.Errorf("got %v", got)
	}
}

func TestOutboxPreservesFlags(t *testing.T) {
	o := newOutbox(2)
	o.push(queuedMsg{topic: TopicSystem, payload: []byte("x"), qos: 1, retained: true})
	m := o.drain()[0]
	if m.qos != 1 || !m.retained {
		t.Errorf("flags lost: %+v", m)
	}
}
