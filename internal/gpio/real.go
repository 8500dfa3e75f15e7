//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/chamber-controller/internal/logic"
)

// RealActuators drives relays through the Linux GPIO character device.
type RealActuators struct {
	chip  *gpiocdev.Chip
	lines map[logic.Channel]*gpiocdev.Line
}

// NewRealActuators requests one output line per channel, all initially off.
// activeLow inverts the lines for relay boards that switch on a low level.
func NewRealActuators(chipName string, pins Pins, activeLow bool) (*RealActuators, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("chamber"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealActuators{chip: chip, lines: make(map[logic.Channel]*gpiocdev.Line)}
	for _, ch := range logic.Channels {
		offset, err := pins.Offset(ch)
		if err != nil {
			r.Close()
			return nil, err
		}
		opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
		if activeLow {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		line, err := chip.RequestLine(offset, opts...)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", ch, offset, err)
		}
		r.lines[ch] = line
	}
	return r, nil
}

// Set drives the line for ch.
func (r *RealActuators) Set(ch logic.Channel, on bool) error {
	line, ok := r.lines[ch]
	if !ok {
		return fmt.Errorf("gpio: unknown channel %q", ch)
	}
	v := 0
	if on {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("set %s: %w", ch, err)
	}
	return nil
}

// Close releases GPIO resources.
// Reconfigures lines to input with pull-down (matching Pi boot defaults)
// before closing so the relays drop out when the controller exits.
func (r *RealActuators) Close() error {
	var errs []error

	for _, ch := range logic.Channels {
		line, ok := r.lines[ch]
		if !ok {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", ch, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", ch, err))
		}
		delete(r.lines, ch)
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
