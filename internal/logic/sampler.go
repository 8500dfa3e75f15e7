package logic

import "time"

// Telemetry holds one history window per sensor and actuator channel.
type Telemetry struct {
	CO2           *Window[int]
	CO2Secondary  *Window[int]
	RH            *Window[float64]
	RHSecondary   *Window[float64]
	Temp          *Window[float64]
	TempSecondary *Window[float64]
	TempOuter     *Window[float64]

	Fogger   *Window[int]
	Mixing   *Window[int]
	FreshAir *Window[int]
	Heater   *Window[int]
}

// NewTelemetry creates windows of the given capacity for every channel.
func NewTelemetry(capacity int) *Telemetry {
	return &Telemetry{
		CO2:           NewWindow[int](capacity),
		CO2Secondary:  NewWindow[int](capacity),
		RH:            NewWindow[float64](capacity),
		RHSecondary:   NewWindow[float64](capacity),
		Temp:          NewWindow[float64](capacity),
		TempSecondary: NewWindow[float64](capacity),
		TempOuter:     NewWindow[float64](capacity),
		Fogger:        NewWindow[int](capacity),
		Mixing:        NewWindow[int](capacity),
		FreshAir:      NewWindow[int](capacity),
		Heater:        NewWindow[int](capacity),
	}
}

// Record pushes one sample and the current actuator flags.
func (t *Telemetry) Record(s Sample, a Actuators) {
	t.CO2.Push(s.CO2)
	t.CO2Secondary.Push(s.CO2Secondary)
	t.RH.Push(s.RH)
	t.RHSecondary.Push(s.RHSecondary)
	t.Temp.Push(s.Temp)
	t.TempSecondary.Push(s.TempSecondary)
	t.TempOuter.Push(s.TempOuter)
	t.Fogger.Push(boolToInt(a.Fogger))
	t.Mixing.Push(boolToInt(a.Mixing))
	t.FreshAir.Push(boolToInt(a.FreshAir))
	t.Heater.Push(boolToInt(a.Heater))
}

// TelemetrySnapshot is the linearized view of every channel, oldest first.
type TelemetrySnapshot struct {
	CO2           []int     `json:"co2"`
	CO2Secondary  []int     `json:"co2_2"`
	RH            []float64 `json:"rh"`
	RHSecondary   []float64 `json:"rh_2"`
	Temp          []float64 `json:"temp"`
	TempSecondary []float64 `json:"temp_2"`
	TempOuter     []float64 `json:"temp_outer"`
	Fogger        []int     `json:"fogger"`
	Mixing        []int     `json:"mixing"`
	FreshAir      []int     `json:"fresh_air"`
	Heater        []int     `json:"heater"`
}

// Snapshot linearizes every window. Each slice has the window capacity as
// its length.
func (t *Telemetry) Snapshot() TelemetrySnapshot {
	return TelemetrySnapshot{
		CO2:           t.CO2.Linearize(),
		CO2Secondary:  t.CO2Secondary.Linearize(),
		RH:            t.RH.Linearize(),
		RHSecondary:   t.RHSecondary.Linearize(),
		Temp:          t.Temp.Linearize(),
		TempSecondary: t.TempSecondary.Linearize(),
		TempOuter:     t.TempOuter.Linearize(),
		Fogger:        t.Fogger.Linearize(),
		Mixing:        t.Mixing.Linearize(),
		FreshAir:      t.FreshAir.Linearize(),
		Heater:        t.Heater.Linearize(),
	}
}

// Sampler decides when the next telemetry sample is due.
// The due time advances by a fixed period from the previous due time, never
// from now, so late ticks do not accumulate drift.
type Sampler struct {
	interval time.Duration
	next     time.Time
	started  bool
}

// NewSampler creates a sampler with an already-scaled interval.
func NewSampler(interval time.Duration) *Sampler {
	return &Sampler{interval: interval}
}

// Due reports whether a sample should be taken at now and, if so, schedules
// the following one. The first call is always due.
func (s *Sampler) Due(now time.Time) bool {
	if !s.started {
		s.started = true
		s.next = now.Add(s.interval)
		return true
	}
	if now.Before(s.next) {
		return false
	}
	s.next = s.next.Add(s.interval)
	return true
}

// Next returns the next due time.
func (s *Sampler) Next() time.Time {
	return s.next
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
