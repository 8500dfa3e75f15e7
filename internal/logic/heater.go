package logic

import "time"

// Heater is a two-point hysteresis loop, independent of the sequencer.
type Heater struct {
	interval    time.Duration // scaled check interval
	onThreshold float64       // °C below setpoint that switches the heater on
	last        time.Time
	checked     bool
}

// NewHeater creates a heater loop.
func NewHeater(interval time.Duration, onThreshold float64) *Heater {
	return &Heater{interval: interval, onThreshold: onThreshold}
}

// Due reports whether a check should run at now and records it.
// The first call is always due.
func (h *Heater) Due(now time.Time) bool {
	if h.checked && now.Sub(h.last) < h.interval {
		return false
	}
	h.checked = true
	h.last = now
	return true
}

// Evaluate returns the command to issue for temp, or nil when the heater
// should stay as it is. Between setpoint-onThreshold and setpoint nothing changes.
func (h *Heater) Evaluate(temp, setpoint float64, on bool) *Command {
	switch {
	case !on && temp < setpoint-h.onThreshold:
		return &Command{Channel: ChannelHeater, On: true}
	case on && temp >= setpoint:
		return &Command{Channel: ChannelHeater, On: false}
	}
	return nil
}
