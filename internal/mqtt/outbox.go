package mqtt

import "log"

// queuedMsg is a serialized message waiting for the broker connection.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// lifecycle reports whether m is a system message. Those are kept in
// preference to chamber events when the outbox overflows.
func (m queuedMsg) lifecycle() bool {
	return m.topic == TopicSystem
}

// outbox holds messages published while disconnected, oldest first.
// When full it drops the oldest chamber event, or the oldest message if
// only lifecycle messages remain.
// Not safe for concurrent use; the caller holds the publisher lock.
type outbox struct {
	msgs     []queuedMsg
	capacity int
	dropped  int
	warned   bool
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{capacity: capacity}
}

func (o *outbox) push(m queuedMsg) {
	if len(o.msgs) == o.capacity {
		if !o.warned {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest events", o.capacity)
			o.warned = true
		}
		victim := 0
		for i, q := range o.msgs {
			if !q.lifecycle() {
				victim = i
				break
			}
		}
		o.msgs = append(o.msgs[:victim], o.msgs[victim+1:]...)
		o.dropped++
	}
	o.msgs = append(o.msgs, m)
}

// drain returns the queued messages in publish order and empties the outbox.
func (o *outbox) drain() []queuedMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	out := o.msgs
	o.msgs = nil
	o.warned = false
	return out
}

func (o *outbox) len() int {
	return len(o.msgs)
}
