// Package sensor provides environment samples to the controller.
// Real sensor drivers are out of scope; the simulator stands in for them
// and the fake allows deterministic tests.
package sensor

import "github.com/sweeney/chamber-controller/internal/logic"

// Source reads one environment sample.
type Source interface {
	// Read returns the current CO₂, humidity and temperature readings.
	Read() (logic.Sample, error)
}
