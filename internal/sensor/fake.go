package sensor

import (
	"errors"

	"github.com/sweeney/chamber-controller/internal/logic"
)

// FakeSource is a test double that returns scripted samples.
type FakeSource struct {
	// Samples contains scripted values to return.
	// Each call to Read() consumes the next sample.
	Samples []logic.Sample

	// index tracks current position in Samples
	index int

	// Reads counts Read calls, including failed ones.
	Reads int

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeSource creates a FakeSource with the given samples.
func NewFakeSource(samples ...logic.Sample) *FakeSource {
	return &FakeSource{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeSource) Read() (logic.Sample, error) {
	f.Reads++
	if f.ReadError != nil {
		return logic.Sample{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return logic.Sample{}, errors.New("no samples configured")
	}

	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s, nil
}

// Set replaces the script with a single repeating sample.
func (f *FakeSource) Set(s logic.Sample) {
	f.Samples = []logic.Sample{s}
	f.index = 0
}
