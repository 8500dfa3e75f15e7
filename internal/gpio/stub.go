//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/chamber-controller/internal/logic"
)

// RealActuators is not available on non-Linux platforms.
type RealActuators struct{}

// NewRealActuators returns an error on non-Linux platforms.
func NewRealActuators(chipName string, pins Pins, activeLow bool) (*RealActuators, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (r *RealActuators) Set(ch logic.Channel, on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealActuators) Close() error {
	return nil
}
