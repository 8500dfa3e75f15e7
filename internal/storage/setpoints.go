package storage

import (
	"math"
	"time"

	"github.com/sweeney/chamber-controller/internal/logic"
)

// Payload layout. Floats are stored as tenths.
const (
	IndexCounter = 0
	IndexCO2     = 1
	IndexRH      = 2
	IndexTemp    = 3
)

// Setpoint ranges and defaults.
const (
	CO2Min     = 400
	CO2Max     = 10000
	CO2Default = 800

	RHMin     = 82.0
	RHMax     = 96.0
	RHDefault = 90.0

	TempMin     = 18.0
	TempMax     = 32.0
	TempDefault = 25.0
)

// ClampCO2 limits ppm to [CO2Min, CO2Max].
func ClampCO2(ppm int) uint16 {
	if ppm < CO2Min {
		return CO2Min
	}
	if ppm > CO2Max {
		return CO2Max
	}
	return uint16(ppm)
}

// ClampRH limits percent to [RHMin, RHMax] at one decimal.
func ClampRH(percent float64) float64 {
	return clampTenths(percent, RHMin, RHMax, RHDefault)
}

// ClampTemp limits celsius to [TempMin, TempMax] at one decimal.
func ClampTemp(celsius float64) float64 {
	return clampTenths(celsius, TempMin, TempMax, TempDefault)
}

func clampTenths(v, lo, hi, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	v = math.Max(lo, math.Min(hi, v))
	return math.Round(v*10) / 10
}

func toTenths(v float64) uint16 {
	return uint16(math.Round(v * 10))
}

// CO2Setpoint returns the CO₂ setpoint in ppm.
func (s *Store) CO2Setpoint() uint16 {
	v := s.values[IndexCO2]
	if v < CO2Min || v > CO2Max {
		return CO2Default
	}
	return v
}

// RHSetpoint returns the RH setpoint in percent.
func (s *Store) RHSetpoint() float64 {
	v := s.values[IndexRH]
	if v < toTenths(RHMin) || v > toTenths(RHMax) {
		return RHDefault
	}
	return float64(v) / 10
}

// TempSetpoint returns the temperature setpoint in °C.
func (s *Store) TempSetpoint() float64 {
	v := s.values[IndexTemp]
	if v < toTenths(TempMin) || v > toTenths(TempMax) {
		return TempDefault
	}
	return float64(v) / 10
}

// Setpoints returns all three setpoints.
func (s *Store) Setpoints() logic.Setpoints {
	return logic.Setpoints{
		CO2:  s.CO2Setpoint(),
		RH:   s.RHSetpoint(),
		Temp: s.TempSetpoint(),
	}
}

// SetCO2Setpoint clamps and stores ppm, returning the stored value.
func (s *Store) SetCO2Setpoint(ppm int, now time.Time) uint16 {
	v := ClampCO2(ppm)
	s.values[IndexCO2] = v
	s.touch(now)
	return v
}

// SetRHSetpoint clamps and stores percent, returning the stored value.
func (s *Store) SetRHSetpoint(percent float64, now time.Time) float64 {
	v := ClampRH(percent)
	s.values[IndexRH] = toTenths(v)
	s.touch(now)
	return v
}

// SetTempSetpoint clamps and stores celsius, returning the stored value.
func (s *Store) SetTempSetpoint(celsius float64, now time.Time) float64 {
	v := ClampTemp(celsius)
	s.values[IndexTemp] = toTenths(v)
	s.touch(now)
	return v
}

// repairSetpoints replaces stored setpoints outside their range with the
// defaults and returns how many were replaced.
func (s *Store) repairSetpoints(now time.Time) int {
	n := 0
	if v := s.values[IndexCO2]; v < CO2Min || v > CO2Max {
		s.values[IndexCO2] = CO2Default
		n++
	}
	if v := s.values[IndexRH]; v < toTenths(RHMin) || v > toTenths(RHMax) {
		s.values[IndexRH] = toTenths(RHDefault)
		n++
	}
	if v := s.values[IndexTemp]; v < toTenths(TempMin) || v > toTenths(TempMax) {
		s.values[IndexTemp] = toTenths(TempDefault)
		n++
	}
	if n > 0 {
		s.touch(now)
	}
	return n
}
