package logic

import (
	"fmt"
	"time"
)

// Stage is a measurement cycle stage.
type Stage string

const (
	StageIdle     Stage = "IDLE"
	StageSwirl    Stage = "SWIRL"
	StageMedian   Stage = "MEDIAN_SAMPLE"
	StageEvaluate Stage = "EVALUATE"
	StageWait     Stage = "WAIT"
)

// CycleConfig holds already-scaled measurement timings.
type CycleConfig struct {
	Swirl          time.Duration // mixing before sampling
	SampleInterval time.Duration // between median sub-samples
	Wait           time.Duration // idle time after evaluation
	Samples        int           // K, samples per median
}

// CycleResult is what one Step asks the caller to do.
type CycleResult struct {
	Commands []Command
	Reading  *Reading // set on the EVALUATE step
	Entered  Stage    // non-empty when the stage changed
}

// Cycle runs SWIRL → MEDIAN_SAMPLE → EVALUATE → WAIT → SWIRL forever.
type Cycle struct {
	cfg        CycleConfig
	stage      Stage
	stageStart time.Time
	nextSample time.Time
	index      int
	rh         []float64
	temp       []float64
	co2        []int
}

// NewCycle creates an idle cycle; the first Step enters SWIRL.
func NewCycle(cfg CycleConfig) *Cycle {
	if cfg.Samples < 1 {
		cfg.Samples = 1
	}
	return &Cycle{
		cfg:   cfg,
		stage: StageIdle,
		rh:    make([]float64, cfg.Samples),
		temp:  make([]float64, cfg.Samples),
		co2:   make([]int, cfg.Samples),
	}
}

// Stage returns the current stage.
func (c *Cycle) Stage() Stage {
	return c.stage
}

// Collected returns how many median samples the current cycle holds.
func (c *Cycle) Collected() int {
	return c.index
}

// Step advances the cycle by at most one stage. read is only called while
// collecting median samples; a read error leaves the sample due for the next step.
func (c *Cycle) Step(now time.Time, read func() (Sample, error)) (CycleResult, error) {
	var res CycleResult

	switch c.stage {
	case StageIdle:
		res.Commands = c.enter(StageSwirl, now)
		res.Entered = StageSwirl

	case StageSwirl:
		if now.Sub(c.stageStart) >= c.cfg.Swirl {
			res.Commands = c.enter(StageMedian, now)
			res.Entered = StageMedian
		}

	case StageMedian:
		if c.index < c.cfg.Samples && !now.Before(c.nextSample) {
			s, err := read()
			if err != nil {
				return res, fmt.Errorf("median sample %d: %w", c.index+1, err)
			}
			c.rh[c.index] = s.RH
			c.temp[c.index] = s.Temp
			c.co2[c.index] = s.CO2
			c.index++
			c.nextSample = c.nextSample.Add(c.cfg.SampleInterval)
		}
		if c.index >= c.cfg.Samples {
			res.Commands = c.enter(StageEvaluate, now)
			res.Entered = StageEvaluate
		}

	case StageEvaluate:
		res.Reading = &Reading{
			CO2:  Median(c.co2),
			RH:   Median(c.rh),
			Temp: Median(c.temp),
		}
		res.Commands = c.enter(StageWait, now)
		res.Entered = StageWait

	case StageWait:
		if now.Sub(c.stageStart) >= c.cfg.Wait {
			res.Commands = c.enter(StageSwirl, now)
			res.Entered = StageSwirl
		}
	}

	return res, nil
}

// enter performs the transition into next and returns its output changes.
func (c *Cycle) enter(next Stage, now time.Time) []Command {
	prev := c.stage
	c.stage = next
	c.stageStart = now

	switch next {
	case StageSwirl:
		return []Command{{Channel: ChannelMixing, On: true}}
	case StageMedian:
		c.index = 0
		c.nextSample = now
		if prev == StageSwirl {
			return []Command{{Channel: ChannelMixing, On: false}}
		}
	}
	return nil
}
