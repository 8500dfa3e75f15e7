package logic

import (
	"testing"
	"time"
)

func TestHeaterHysteresis(t *testing.T) {
	h := NewHeater(time.Second, 1.0)

	if c := h.Evaluate(24.5, 25, false); c != nil {
		t.Errorf("inside dead band: got %v, want nil", c)
	}
	c := h.Evaluate(23.9, 25, false)
	if c == nil || !c.On || c.Channel != ChannelHeater {
		t.Errorf("below on threshold: got %v, want heater on", c)
	}
	if c := h.Evaluate(24.5, 25, true); c != nil {
		t.Errorf("heating inside dead band: got %v, want nil", c)
	}
	c = h.Evaluate(25, 25, true)
	if c == nil || c.On {
		t.Errorf("at setpoint: got %v, want heater off", c)
	}
	if c := h.Evaluate(26, 25, false); c != nil {
		t.Errorf("already off: got %v, want nil", c)
	}
}

func TestHeaterDue(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := NewHeater(time.Second, 1.0)
	if !h.Due(now) {
		t.Error("first check should be due")
	}
	if h.Due(now.Add(500 * time.Millisecond)) {
		t.Error("should not be due within interval")
	}
	if !h.Due(now.Add(time.Second)) {
		t.Error("should be due after interval")
	}
}
