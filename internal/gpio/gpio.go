// Package gpio drives the chamber's relay outputs with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"

	"github.com/sweeney/chamber-controller/internal/logic"
)

// Actuators switches the physical outputs.
type Actuators interface {
	// Set drives one channel on or off.
	Set(ch logic.Channel, on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Pins maps each output channel to a line offset (BCM numbering).
type Pins struct {
	Mixing   int
	FreshAir int
	Fogger   int
	Heater   int
}

// DefaultPins is the relay board wiring of the reference chamber.
var DefaultPins = Pins{
	Mixing:   17,
	FreshAir: 27,
	Fogger:   22,
	Heater:   23,
}

// Offset returns the line offset for ch.
func (p Pins) Offset(ch logic.Channel) (int, error) {
	switch ch {
	case logic.ChannelMixing:
		return p.Mixing, nil
	case logic.ChannelFreshAir:
		return p.FreshAir, nil
	case logic.ChannelFogger:
		return p.Fogger, nil
	case logic.ChannelHeater:
		return p.Heater, nil
	}
	return 0, fmt.Errorf("gpio: unknown channel %q", ch)
}
