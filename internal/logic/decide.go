package logic

import "time"

// Thresholds configure the decision ladder.
type Thresholds struct {
	CO2Threshold     int           // ppm above setpoint before acting
	RHHysteresis     float64       // ± band around the RH setpoint
	BaselineInterval time.Duration // scaled; max time without ventilation
}

// DecisionState is the part of the sequencer state the ladder consults.
type DecisionState struct {
	RHUpLockoutUntil   time.Time
	RHDownLockoutUntil time.Time
	LastVentilation    time.Time
}

// Decide picks at most one corrective action for a filtered reading.
// Rules are checked in priority order and the first match wins:
// CO2 high, RH high (unless RH_DOWN is locked out), RH low (unless RH_UP is
// locked out), then baseline ventilation when none happened for too long.
// The caller must not consult Decide while an action is running.
func Decide(r Reading, sp Setpoints, st DecisionState, th Thresholds, now time.Time) ActionKind {
	if r.CO2 > int(sp.CO2)+th.CO2Threshold {
		return ActionCO2
	}

	if r.RH > sp.RH+th.RHHysteresis && !now.Before(st.RHDownLockoutUntil) {
		return ActionRHDown
	}

	if r.RH < sp.RH-th.RHHysteresis && !now.Before(st.RHUpLockoutUntil) {
		return ActionRHUp
	}

	if !st.LastVentilation.IsZero() && now.Sub(st.LastVentilation) >= th.BaselineInterval {
		return ActionBaseline
	}

	return ActionNone
}
