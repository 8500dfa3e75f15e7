package controller

import (
	"log"
	"time"

	"github.com/sweeney/chamber-controller/internal/logic"
	"github.com/sweeney/chamber-controller/internal/status"
	"github.com/sweeney/chamber-controller/internal/storage"
)

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Telemetry returns every channel's history, oldest first, zero-padded to
// the history size.
func (c *Controller) Telemetry() logic.TelemetrySnapshot {
	return c.telemetry.Snapshot()
}

// Outputs returns the mirrored relay states.
func (c *Controller) Outputs() logic.Actuators {
	return c.outputs
}

// ActiveAction returns the running action and its stage.
func (c *Controller) ActiveAction() (logic.ActionKind, string) {
	return c.seq.Active(), c.seq.StageName()
}

// LastSample returns the most recent telemetry sample, if any.
func (c *Controller) LastSample() (logic.Sample, bool) {
	if c.lastSample == nil {
		return logic.Sample{}, false
	}
	return *c.lastSample, true
}

// LastReading returns the most recent median-filtered reading, if any.
func (c *Controller) LastReading() (logic.Reading, bool) {
	if c.lastReading == nil {
		return logic.Reading{}, false
	}
	return *c.lastReading, true
}

// Stats returns soft failure counters.
func (c *Controller) Stats() Stats {
	st := c.stats
	st.Actions = make(map[logic.ActionKind]int, len(c.stats.Actions))
	for k, v := range c.stats.Actions {
		st.Actions[k] = v
	}
	return st
}

// Setpoints returns the current control targets.
func (c *Controller) Setpoints() logic.Setpoints {
	return c.store.Setpoints()
}

// CO2Setpoint returns the CO₂ setpoint in ppm.
func (c *Controller) CO2Setpoint() uint16 {
	return c.store.CO2Setpoint()
}

// RHSetpoint returns the humidity setpoint in percent.
func (c *Controller) RHSetpoint() float64 {
	return c.store.RHSetpoint()
}

// TempSetpoint returns the temperature setpoint in °C.
func (c *Controller) TempSetpoint() float64 {
	return c.store.TempSetpoint()
}

// SetCO2Setpoint clamps and stores ppm and returns the stored value.
func (c *Controller) SetCO2Setpoint(ppm int, now time.Time) uint16 {
	v := c.store.SetCO2Setpoint(ppm, now)
	log.Printf("controller: co2 setpoint changed to %dppm", v)
	c.setpointChanged(now)
	return v
}

// SetRHSetpoint clamps and stores percent and returns the stored value.
func (c *Controller) SetRHSetpoint(percent float64, now time.Time) float64 {
	v := c.store.SetRHSetpoint(percent, now)
	log.Printf("controller: rh setpoint changed to %.1f%%", v)
	c.setpointChanged(now)
	return v
}

// SetTempSetpoint clamps and stores celsius and returns the stored value.
func (c *Controller) SetTempSetpoint(celsius float64, now time.Time) float64 {
	v := c.store.SetTempSetpoint(celsius, now)
	log.Printf("controller: temp setpoint changed to %.1fC", v)
	c.setpointChanged(now)
	return v
}

func (c *Controller) setpointChanged(now time.Time) {
	c.pending = append(c.pending, logic.Event{
		Timestamp: now,
		Type:      logic.EventSetpoint,
		Setpoints: c.store.Setpoints(),
	})
}

// Value returns persisted payload value i.
func (c *Controller) Value(i int) (uint16, error) {
	return c.store.Value(i)
}

// Values returns all persisted payload values.
func (c *Controller) Values() [storage.NumValues]uint16 {
	return c.store.Values()
}

// SetValue stores payload value i. Writes to setpoint slots are kept in range.
func (c *Controller) SetValue(i int, v uint16, now time.Time) error {
	if err := c.store.SetValue(i, v, now); err != nil {
		return err
	}
	if isSetpointIndex(i) {
		c.setpointChanged(now)
	}
	return nil
}

// IncrementValue adds one to payload value i and returns the new value.
func (c *Controller) IncrementValue(i int, now time.Time) (uint16, error) {
	v, err := c.store.Increment(i, now)
	if err != nil {
		return 0, err
	}
	if isSetpointIndex(i) {
		c.setpointChanged(now)
	}
	return v, nil
}

func isSetpointIndex(i int) bool {
	return i == storage.IndexCO2 || i == storage.IndexRH || i == storage.IndexTemp
}

// SaveNow writes pending payload changes without waiting for the debounce.
func (c *Controller) SaveNow(now time.Time) error {
	return c.store.SaveNow(now)
}

// Observe returns a copy of the controller state for status reporting.
func (c *Controller) Observe() status.ControllerState {
	values := c.store.Values()
	l := c.store.Log()
	ls := l.Stats()

	st := status.ControllerState{
		Setpoints:   c.store.Setpoints(),
		Outputs:     c.outputs,
		Action:      c.seq.Active(),
		ActionStage: c.seq.StageName(),
		Measurement: c.cycle.Stage(),
		Collected:   c.cycle.Collected(),
		Lockouts:    c.seq.State(),
		Values:      append([]uint16(nil), values[:]...),
		Storage: status.StorageInfo{
			Available: l.Available(),
			Cursor:    l.Cursor(),
			Slots:     l.NumSlots(),
			Writes:    ls.Writes,
			Failures:  ls.Failures,
			Erases:    ls.Erases,
			Dirty:     c.store.Dirty(),
		},
		Telemetry: c.telemetry.Snapshot(),
	}
	if c.lastSample != nil {
		s := *c.lastSample
		st.LastSample = &s
	}
	if c.lastReading != nil {
		r := *c.lastReading
		st.LastReading = &r
	}
	return st
}
