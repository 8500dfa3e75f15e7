package logic

import "time"

// Scaler compresses nominal durations for accelerated runs.
// A Factor of 10 makes every timed stage ten times shorter.
type Scaler struct {
	Factor int
}

// Scale returns nominal/Factor at millisecond resolution.
// A non-zero duration never scales below one millisecond.
func (s Scaler) Scale(nominal time.Duration) time.Duration {
	if nominal <= 0 {
		return 0
	}
	f := int64(s.Factor)
	if f < 1 {
		f = 1
	}
	ms := nominal.Milliseconds() / f
	if ms == 0 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}
