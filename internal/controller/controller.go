// Package controller composes the chamber's control loops into a single
// aggregate driven by one Tick call per loop iteration.
//
// Controller is not safe for concurrent use. Other goroutines reach it
// through a Mailbox drained by the goroutine that calls Tick.
package controller

import (
	"log"
	"time"

	"github.com/sweeney/chamber-controller/internal/gpio"
	"github.com/sweeney/chamber-controller/internal/logic"
	"github.com/sweeney/chamber-controller/internal/sensor"
	"github.com/sweeney/chamber-controller/internal/storage"
)

// Stats counts soft failures since start.
type Stats struct {
	Samples      int
	ReadErrors   int
	OutputErrors int
	SaveErrors   int
	Actions      map[logic.ActionKind]int
}

// Controller owns every piece of control state.
type Controller struct {
	cfg   Config
	src   sensor.Source
	out   gpio.Actuators
	store *storage.Store

	sampler   *logic.Sampler
	telemetry *logic.Telemetry
	cycle     *logic.Cycle
	seq       *logic.Sequencer
	heater    *logic.Heater
	th        logic.Thresholds

	outputs     logic.Actuators
	lastSample  *logic.Sample
	lastReading *logic.Reading
	pending     []logic.Event
	stats       Stats
}

// New creates a controller. Call Init before the first Tick.
func New(cfg Config, src sensor.Source, out gpio.Actuators, store *storage.Store) *Controller {
	if cfg.Speedup < 1 {
		cfg.Speedup = 1
	}
	if cfg.HistorySize < 1 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	return &Controller{
		cfg:       cfg,
		src:       src,
		out:       out,
		store:     store,
		telemetry: logic.NewTelemetry(cfg.HistorySize),
		th:        cfg.thresholds(),
		stats:     Stats{Actions: make(map[logic.ActionKind]int)},
	}
}

// Init switches every output off, loads the persisted setpoints and resets
// all state machines. now starts the baseline ventilation clock.
func (c *Controller) Init(now time.Time) {
	log.Printf("controller: initializing (speedup=%d)", c.cfg.Speedup)

	for _, ch := range logic.Channels {
		c.apply(logic.Command{Channel: ch, On: false})
	}

	s := c.cfg.scaler()
	c.sampler = logic.NewSampler(s.Scale(c.cfg.SampleInterval))
	c.cycle = logic.NewCycle(c.cfg.cycleConfig())
	c.seq = logic.NewSequencer(c.cfg.sequencerConfig(), now)
	c.heater = logic.NewHeater(s.Scale(c.cfg.HeaterInterval), c.cfg.HeaterOnThreshold)

	found := c.store.Load(now)
	sp := c.store.Setpoints()
	log.Printf("controller: setpoints co2=%dppm rh=%.1f%% temp=%.1fC (stored=%v, device=%v)",
		sp.CO2, sp.RH, sp.Temp, found, c.store.Log().Available())
}

// Tick advances sampling, the measurement cycle, the action sequencer, the
// heater loop and debounced persistence, in that order. It returns the
// events produced since the previous tick.
func (c *Controller) Tick(now time.Time) []logic.Event {
	events := c.pending
	c.pending = nil

	c.sample(now)
	events = c.measure(now, events)
	events = c.advanceAction(now, events)
	events = c.regulateHeater(now, events)

	if err := c.store.Tick(now); err != nil {
		c.stats.SaveErrors++
	}
	return events
}

func (c *Controller) sample(now time.Time) {
	if !c.sampler.Due(now) {
		return
	}
	s, err := c.src.Read()
	if err != nil {
		c.stats.ReadErrors++
		log.Printf("controller: sample read failed: %v", err)
		return
	}
	c.telemetry.Record(s, c.outputs)
	c.lastSample = &s
	c.stats.Samples++
}

func (c *Controller) measure(now time.Time, events []logic.Event) []logic.Event {
	res, err := c.cycle.Step(now, c.src.Read)
	if err != nil {
		c.stats.ReadErrors++
		log.Printf("controller: measurement: %v", err)
	}
	c.apply(res.Commands...)
	if res.Entered != "" {
		log.Printf("controller: measurement %s", res.Entered)
	}
	if res.Reading == nil {
		return events
	}

	r := *res.Reading
	c.lastReading = &r
	sp := c.store.Setpoints()
	log.Printf("controller: median co2=%dppm rh=%.1f%% temp=%.1fC", r.CO2, r.RH, r.Temp)
	events = append(events, logic.Event{
		Timestamp: now,
		Type:      logic.EventMeasurement,
		Reading:   &r,
		Setpoints: sp,
	})

	if c.seq.Active() != logic.ActionNone {
		return events
	}
	kind := logic.Decide(r, sp, c.seq.State(), c.th, now)
	if kind == logic.ActionNone {
		return events
	}
	started, ok := c.seq.Start(kind, now)
	if !ok {
		return events
	}
	c.stats.Actions[kind]++
	c.apply(started.Commands...)
	log.Printf("controller: action %s started (%s)", kind, started.Stage)
	return append(events, logic.Event{
		Timestamp: now,
		Type:      logic.EventActionStarted,
		Action:    kind,
		Stage:     started.Stage,
		Reading:   &r,
		Setpoints: sp,
	})
}

func (c *Controller) advanceAction(now time.Time, events []logic.Event) []logic.Event {
	active := c.seq.Active()
	res := c.seq.Step(now)
	c.apply(res.Commands...)

	switch {
	case res.Stage != "":
		log.Printf("controller: action %s stage %s", active, res.Stage)
		events = append(events, logic.Event{
			Timestamp: now,
			Type:      logic.EventActionStage,
			Action:    active,
			Stage:     res.Stage,
		})
	case res.Completed != logic.ActionNone:
		log.Printf("controller: action %s completed", res.Completed)
		events = append(events, logic.Event{
			Timestamp: now,
			Type:      logic.EventActionCompleted,
			Action:    res.Completed,
		})
	}
	return events
}

func (c *Controller) regulateHeater(now time.Time, events []logic.Event) []logic.Event {
	if !c.heater.Due(now) {
		return events
	}
	s, err := c.src.Read()
	if err != nil {
		c.stats.ReadErrors++
		log.Printf("controller: heater read failed: %v", err)
		return events
	}
	sp := c.store.Setpoints()
	cmd := c.heater.Evaluate(s.Temp, sp.Temp, c.outputs.Heater)
	if cmd == nil || !c.apply(*cmd) {
		return events
	}

	typ := logic.EventHeaterOff
	if cmd.On {
		typ = logic.EventHeaterOn
	}
	log.Printf("controller: heater %s (temp=%.1fC setpoint=%.1fC)", onOff(cmd.On), s.Temp, sp.Temp)
	return append(events, logic.Event{
		Timestamp: now,
		Type:      typ,
		Temp:      s.Temp,
		Setpoints: sp,
	})
}

// apply drives the outputs and mirrors each successful change. It reports
// whether every command was applied.
func (c *Controller) apply(cmds ...logic.Command) bool {
	ok := true
	for _, cmd := range cmds {
		if err := c.out.Set(cmd.Channel, cmd.On); err != nil {
			c.stats.OutputErrors++
			ok = false
			log.Printf("controller: set %s %s: %v", cmd.Channel, onOff(cmd.On), err)
			continue
		}
		c.outputs.Apply(cmd)
	}
	return ok
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
