// Package logic contains the pure control logic of the climate chamber.
// This package has NO external dependencies (no GPIO, MQTT, storage, OS, or time.Sleep).
// Time is always injectable via time.Time parameters, and state machines return the
// actuator commands they want applied instead of driving hardware themselves.
package logic

import "time"

// Sample is one environment reading from the chamber sensors.
type Sample struct {
	CO2           int // ppm
	CO2Secondary  int
	RH            float64 // % relative humidity
	RHSecondary   float64
	Temp          float64 // °C inside the chamber
	TempSecondary float64
	TempOuter     float64 // °C outside the chamber
}

// Reading is the median-filtered result of one measurement cycle.
type Reading struct {
	CO2  int
	RH   float64
	Temp float64
}

// Channel identifies a physical output.
type Channel string

const (
	ChannelMixing   Channel = "MIXING"
	ChannelFreshAir Channel = "FRESH_AIR"
	ChannelFogger   Channel = "FOGGER"
	ChannelHeater   Channel = "HEATER"
)

// Channels lists all outputs in a stable order.
var Channels = []Channel{ChannelMixing, ChannelFreshAir, ChannelFogger, ChannelHeater}

// Command asks for one output to be switched.
type Command struct {
	Channel Channel
	On      bool
}

// Actuators mirrors the physical output states.
type Actuators struct {
	Mixing   bool
	FreshAir bool
	Fogger   bool
	Heater   bool
}

// Get returns the state of a single channel.
func (a Actuators) Get(ch Channel) bool {
	switch ch {
	case ChannelMixing:
		return a.Mixing
	case ChannelFreshAir:
		return a.FreshAir
	case ChannelFogger:
		return a.Fogger
	case ChannelHeater:
		return a.Heater
	}
	return false
}

// Apply records a command in the mirror.
func (a *Actuators) Apply(cmd Command) {
	switch cmd.Channel {
	case ChannelMixing:
		a.Mixing = cmd.On
	case ChannelFreshAir:
		a.FreshAir = cmd.On
	case ChannelFogger:
		a.Fogger = cmd.On
	case ChannelHeater:
		a.Heater = cmd.On
	}
}

// Setpoints are the control targets.
type Setpoints struct {
	CO2  uint16  // ppm
	RH   float64 // %
	Temp float64 // °C
}

// ActionKind identifies a corrective action.
type ActionKind string

const (
	ActionNone     ActionKind = ""
	ActionCO2      ActionKind = "CO2_REDUCE"
	ActionRHDown   ActionKind = "RH_DOWN"
	ActionRHUp     ActionKind = "RH_UP"
	ActionBaseline ActionKind = "BASELINE"
)

// EventType represents something the controller did.
type EventType string

const (
	EventActionStarted   EventType = "ACTION_STARTED"
	EventActionStage     EventType = "ACTION_STAGE"
	EventActionCompleted EventType = "ACTION_COMPLETED"
	EventMeasurement     EventType = "MEASUREMENT"
	EventHeaterOn        EventType = "HEATER_ON"
	EventHeaterOff       EventType = "HEATER_OFF"
	EventSetpoint        EventType = "SETPOINT"
)

// Event describes a controller transition to be logged or published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Action    ActionKind
	Stage     string
	Reading   *Reading
	Setpoints Setpoints
	Temp      float64
}
