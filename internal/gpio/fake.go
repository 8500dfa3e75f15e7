package gpio

import (
	"github.com/sweeney/chamber-controller/internal/logic"
)

// Call records one Set invocation.
type Call struct {
	Channel logic.Channel
	On      bool
}

// FakeActuators is a test double that records output changes.
type FakeActuators struct {
	// Calls lists every Set call in order, including failed ones.
	Calls []Call

	// State mirrors the last successful value per channel.
	State logic.Actuators

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by Set()
	SetError error
}

// NewFakeActuators creates a FakeActuators with all outputs off.
func NewFakeActuators() *FakeActuators {
	return &FakeActuators{}
}

// Set records the call and updates State unless SetError is set.
func (f *FakeActuators) Set(ch logic.Channel, on bool) error {
	f.Calls = append(f.Calls, Call{Channel: ch, On: on})
	if f.SetError != nil {
		return f.SetError
	}
	f.State.Apply(logic.Command{Channel: ch, On: on})
	return nil
}

// Close marks the outputs as closed.
func (f *FakeActuators) Close() error {
	f.Closed = true
	return nil
}

// Count returns how many Set calls drove ch to on.
func (f *FakeActuators) Count(ch logic.Channel, on bool) int {
	n := 0
	for _, c := range f.Calls {
		if c.Channel == ch && c.On == on {
			n++
		}
	}
	return n
}

// Reset clears the recorded calls.
func (f *FakeActuators) Reset() {
	f.Calls = nil
	f.Closed = false
}
