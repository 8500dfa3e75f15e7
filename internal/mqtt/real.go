package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/chamber-controller/internal/logic"
)

// DefaultOutboxSize is how many messages are held while disconnected.
const DefaultOutboxSize = 500

// RealPublisher publishes to an actual MQTT broker.
// Messages published while the connection is down are queued and replayed
// in order after reconnecting. A retained SHUTDOWN will is registered so
// subscribers notice an unclean exit.
type RealPublisher struct {
	client paho.Client
	topic  string
	now    func() time.Time

	mu  sync.Mutex
	out *outbox
}

// NewRealPublisher creates a publisher and starts connecting in the
// background. It does not wait for the broker, so the control loop can start
// while the broker is unreachable.
func NewRealPublisher(broker, clientID string, now func() time.Time) *RealPublisher {
	p := &RealPublisher{
		topic: Topic,
		now:   now,
		out:   newOutbox(DefaultOutboxSize),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	pending := p.out.drain()
	dropped := p.out.dropped
	p.mu.Unlock()

	log.Printf("mqtt: connected, replaying %d queued messages (%d dropped so far)", len(pending), dropped)
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}

	payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
	c.Publish(TopicSystem, 1, false, payload)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

func (p *RealPublisher) send(msg queuedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.out.push(msg)
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Publish sends a controller event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(queuedMsg{topic: p.topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) - lifecycle events should be delivered
	return p.send(queuedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
