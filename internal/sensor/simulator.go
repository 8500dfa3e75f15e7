package sensor

import (
	"math"
	"math/rand"
	"time"

	"github.com/sweeney/chamber-controller/internal/logic"
)

// Simulator is a random-walk stand-in for the chamber sensors.
// CO₂ drifts upward slowly with occasional pulses, as a chamber full of
// growing substrate does; humidity and temperature wander around their
// starting values. Each secondary channel tracks its primary with a little
// independent noise.
//
// The chamber moves with elapsed time, not with call count: the walk takes
// at most one step per period however often Read is called, and Apply
// scales its effect by the time since the previous Apply.
type Simulator struct {
	rng    *rand.Rand
	now    func() time.Time
	period time.Duration

	co2   float64
	rh    float64
	temp  float64
	outer float64

	last      logic.Sample
	stepped   bool
	lastStep  time.Time
	applied   bool
	lastApply time.Time
}

// Simulator bounds.
const (
	simCO2Min   = 400
	simCO2Max   = 5000
	simRHMin    = 60.0
	simRHMax    = 100.0
	simTempMin  = 10.0
	simTempMax  = 35.0
	pulseChance = 0.02
	// maxApplyPeriods caps the effect of one Apply after a stall.
	maxApplyPeriods = 5
)

// NewSimulator creates a simulator seeded with seed that steps once per
// period as measured by now. A nil now uses time.Now.
func NewSimulator(seed int64, period time.Duration, now func() time.Time) *Simulator {
	if now == nil {
		now = time.Now
	}
	if period <= 0 {
		period = time.Second
	}
	return &Simulator{
		rng:    rand.New(rand.NewSource(seed)),
		now:    now,
		period: period,
		co2:    800,
		rh:    88,
		temp:  24,
		outer: 20,
	}
}

// Read returns the current sample, advancing the walk first when a period
// has passed since the last step.
func (s *Simulator) Read() (logic.Sample, error) {
	t := s.now()
	if s.stepped && t.Sub(s.lastStep) < s.period {
		return s.last, nil
	}
	s.stepped = true
	s.lastStep = t

	s.co2 += s.step(15) + 2
	if s.rng.Float64() < pulseChance {
		s.co2 += 150 + s.rng.Float64()*250
	}
	s.co2 = clamp(s.co2, simCO2Min, simCO2Max)
	s.rh = clamp(s.rh+s.step(0.3), simRHMin, simRHMax)
	s.temp = clamp(s.temp+s.step(0.1), simTempMin, simTempMax)
	s.outer = clamp(s.outer+s.step(0.05), simTempMin, simTempMax)

	s.last = logic.Sample{
		CO2:           int(math.Round(s.co2)),
		CO2Secondary:  int(math.Round(s.co2 + s.step(20))),
		RH:            round1(s.rh),
		RHSecondary:   round1(s.rh + s.step(0.5)),
		Temp:          round1(s.temp),
		TempSecondary: round1(s.temp + s.step(0.2)),
		TempOuter:     round1(s.outer),
	}
	return s.last, nil
}

// Apply nudges the walk in the direction the outputs push the chamber, so
// the simulated loop closes: fresh air lowers CO₂ and humidity, the fogger
// raises humidity and the heater raises temperature. Rates are per period.
// The first call only starts the clock.
func (s *Simulator) Apply(a logic.Actuators) {
	t := s.now()
	if !s.applied {
		s.applied = true
		s.lastApply = t
		return
	}
	k := min(float64(t.Sub(s.lastApply))/float64(s.period), maxApplyPeriods)
	s.lastApply = t
	if k <= 0 {
		return
	}

	if a.FreshAir {
		s.co2 -= 40 * k
		s.rh -= 0.8 * k
	}
	if a.Fogger {
		s.rh += 1.0 * k
	}
	if a.Heater {
		s.temp += 0.15 * k
	} else {
		s.temp += (s.outer - s.temp) * 0.01 * k
	}
	s.co2 = clamp(s.co2, simCO2Min, simCO2Max)
	s.rh = clamp(s.rh, simRHMin, simRHMax)
	s.temp = clamp(s.temp, simTempMin, simTempMax)
}

// step returns a uniform value in [-size, size).
func (s *Simulator) step(size float64) float64 {
	return (s.rng.Float64()*2 - 1) * size
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
