// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/chamber-controller/internal/logic"
)

// Topic is the MQTT topic for controller events.
const Topic = "chamber/controller/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "chamber/controller/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a controller event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Chamber ChamberPayload `json:"chamber"`
}

// ChamberPayload contains the controller event details.
type ChamberPayload struct {
	Timestamp string            `json:"timestamp"`
	Event     string            `json:"event"`
	Action    string            `json:"action,omitempty"`
	Stage     string            `json:"stage,omitempty"`
	Reading   *ReadingPayload   `json:"reading,omitempty"`
	Setpoints *SetpointsPayload `json:"setpoints,omitempty"`
	Temp      *float64          `json:"temp_c,omitempty"`
}

// ReadingPayload is a median-filtered reading.
type ReadingPayload struct {
	CO2  int     `json:"co2_ppm"`
	RH   float64 `json:"rh_percent"`
	Temp float64 `json:"temp_c"`
}

// SetpointsPayload carries the targets in force when the event happened.
type SetpointsPayload struct {
	CO2  uint16  `json:"co2_ppm"`
	RH   float64 `json:"rh_percent"`
	Temp float64 `json:"temp_c"`
}

// FormatPayload creates the JSON payload for a controller event.
func FormatPayload(event logic.Event) ([]byte, error) {
	inner := ChamberPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
		Action:    string(event.Action),
		Stage:     event.Stage,
	}
	if r := event.Reading; r != nil {
		inner.Reading = &ReadingPayload{CO2: r.CO2, RH: r.RH, Temp: r.Temp}
	}
	if sp := event.Setpoints; sp != (logic.Setpoints{}) {
		inner.Setpoints = &SetpointsPayload{CO2: sp.CO2, RH: sp.RH, Temp: sp.Temp}
	}
	if event.Type == logic.EventHeaterOn || event.Type == logic.EventHeaterOff {
		temp := event.Temp
		inner.Temp = &temp
	}
	return json.Marshal(Payload{Chamber: inner})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
