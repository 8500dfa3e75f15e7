package controller

import (
	"time"

	"github.com/sweeney/chamber-controller/internal/logic"
)

// Config holds control timings and thresholds. Durations are nominal;
// the controller divides them by Speedup.
type Config struct {
	Speedup int

	SampleInterval time.Duration // telemetry sampling
	HistorySize    int           // samples kept per channel

	MedianSamples  int
	MeasureSwirl   time.Duration
	MedianInterval time.Duration
	MeasureWait    time.Duration

	CO2Threshold     int
	RHHysteresis     float64
	BaselineInterval time.Duration
	Lockout          time.Duration

	CO2Swirl  time.Duration
	CO2Settle time.Duration

	RHDownFreshAir time.Duration
	RHDownSwirl    time.Duration
	RHDownSettle   time.Duration

	RHUpFogger time.Duration
	RHUpMix    time.Duration
	RHUpSettle time.Duration

	BaselineFreshAir time.Duration
	BaselineSettle   time.Duration

	HeaterInterval    time.Duration
	HeaterOnThreshold float64
}

// DefaultConfig returns the timings of the reference chamber at real speed.
func DefaultConfig() Config {
	return Config{
		Speedup: 1,

		SampleInterval: 3 * time.Second,
		HistorySize:    200,

		MedianSamples:  10,
		MeasureSwirl:   5 * time.Second,
		MedianInterval: time.Second,
		MeasureWait:    60 * time.Second,

		CO2Threshold:     100,
		RHHysteresis:     2.0,
		BaselineInterval: 10 * time.Minute,
		Lockout:          3 * time.Minute,

		CO2Swirl:  10 * time.Second,
		CO2Settle: 20 * time.Second,

		RHDownFreshAir: 10 * time.Second,
		RHDownSwirl:    10 * time.Second,
		RHDownSettle:   20 * time.Second,

		RHUpFogger: 5 * time.Second,
		RHUpMix:    10 * time.Second,
		RHUpSettle: 120 * time.Second,

		BaselineFreshAir: 10 * time.Second,
		BaselineSettle:   10 * time.Second,

		HeaterInterval:    time.Second,
		HeaterOnThreshold: 1.0,
	}
}

func (c Config) scaler() logic.Scaler {
	return logic.Scaler{Factor: c.Speedup}
}

// ScaledSampleInterval is the telemetry sampling period after speedup.
func (c Config) ScaledSampleInterval() time.Duration {
	return c.scaler().Scale(c.SampleInterval)
}

func (c Config) cycleConfig() logic.CycleConfig {
	s := c.scaler()
	return logic.CycleConfig{
		Swirl:          s.Scale(c.MeasureSwirl),
		SampleInterval: s.Scale(c.MedianInterval),
		Wait:           s.Scale(c.MeasureWait),
		Samples:        c.MedianSamples,
	}
}

func (c Config) sequencerConfig() logic.SequencerConfig {
	s := c.scaler()
	return logic.SequencerConfig{
		CO2Swirl:         s.Scale(c.CO2Swirl),
		CO2Settle:        s.Scale(c.CO2Settle),
		RHDownFreshAir:   s.Scale(c.RHDownFreshAir),
		RHDownSwirl:      s.Scale(c.RHDownSwirl),
		RHDownSettle:     s.Scale(c.RHDownSettle),
		RHUpFogger:       s.Scale(c.RHUpFogger),
		RHUpMix:          s.Scale(c.RHUpMix),
		RHUpSettle:       s.Scale(c.RHUpSettle),
		BaselineFreshAir: s.Scale(c.BaselineFreshAir),
		BaselineSettle:   s.Scale(c.BaselineSettle),
		Lockout:          s.Scale(c.Lockout),
	}
}

func (c Config) thresholds() logic.Thresholds {
	return logic.Thresholds{
		CO2Threshold:     c.CO2Threshold,
		RHHysteresis:     c.RHHysteresis,
		BaselineInterval: c.scaler().Scale(c.BaselineInterval),
	}
}
