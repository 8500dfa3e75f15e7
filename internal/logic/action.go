package logic

import "time"

// SequencerConfig holds already-scaled action stage durations.
type SequencerConfig struct {
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

	Lockout time.Duration // opposite-direction RH lockout after completion
}

// stagePlan is one timed step of an action. Its commands are applied when the
// stage is entered; it lasts for duration.
type stagePlan struct {
	name       string
	duration   time.Duration
	commands   []Command
	ventilates bool // entering opens the fresh-air damper
}

// SequenceResult is what one Start or Step asks the caller to do.
type SequenceResult struct {
	Commands  []Command
	Started   ActionKind
	Stage     string     // entered stage, if any
	Completed ActionKind // set when an action finished on this step
}

// Sequencer runs at most one action at a time through its stages.
// Once started an action always runs to completion.
type Sequencer struct {
	plans map[ActionKind][]stagePlan

	active     ActionKind
	stageIdx   int
	stageStart time.Time
	lockout    time.Duration
	state      DecisionState
}

// NewSequencer creates an idle sequencer. now seeds the ventilation clock so
// the first baseline ventilation falls due one baseline interval after start.
func NewSequencer(cfg SequencerConfig, now time.Time) *Sequencer {
	on := func(ch Channel) Command { return Command{Channel: ch, On: true} }
	off := func(ch Channel) Command { return Command{Channel: ch, On: false} }

	return &Sequencer{
		plans: map[ActionKind][]stagePlan{
			ActionCO2: {
				{name: "SWIRL", duration: cfg.CO2Swirl, commands: []Command{on(ChannelMixing)}},
				{name: "SETTLE", duration: cfg.CO2Settle, commands: []Command{off(ChannelMixing)}},
			},
			ActionRHDown: {
				{name: "FRESH_AIR", duration: cfg.RHDownFreshAir, commands: []Command{on(ChannelFreshAir)}, ventilates: true},
				{name: "SWIRL", duration: cfg.RHDownSwirl, commands: []Command{off(ChannelFreshAir), on(ChannelMixing)}},
				{name: "SETTLE", duration: cfg.RHDownSettle, commands: []Command{off(ChannelMixing)}},
			},
			ActionRHUp: {
				{name: "FOGGER", duration: cfg.RHUpFogger, commands: []Command{on(ChannelFogger)}},
				{name: "MIX", duration: cfg.RHUpMix, commands: []Command{on(ChannelMixing), on(ChannelFreshAir)}, ventilates: true},
				{name: "SETTLE", duration: cfg.RHUpSettle, commands: allOff()},
			},
			ActionBaseline: {
				{name: "FRESH_AIR", duration: cfg.BaselineFreshAir, commands: []Command{on(ChannelFreshAir)}, ventilates: true},
				{name: "SETTLE", duration: cfg.BaselineSettle, commands: []Command{off(ChannelFreshAir)}},
			},
		},
		lockout: cfg.Lockout,
		state:   DecisionState{LastVentilation: now},
	}
}

// Active returns the running action, or ActionNone.
func (s *Sequencer) Active() ActionKind {
	return s.active
}

// StageName returns the running stage name, or "IDLE".
func (s *Sequencer) StageName() string {
	if s.active == ActionNone {
		return "IDLE"
	}
	return s.plans[s.active][s.stageIdx].name
}

// State returns the lockout deadlines and last ventilation time.
func (s *Sequencer) State() DecisionState {
	return s.state
}

// Start begins kind at its first stage. It is a no-op returning ok=false
// while another action is running or for an unknown kind.
func (s *Sequencer) Start(kind ActionKind, now time.Time) (SequenceResult, bool) {
	if s.active != ActionNone {
		return SequenceResult{}, false
	}
	plan, ok := s.plans[kind]
	if !ok || len(plan) == 0 {
		return SequenceResult{}, false
	}
	s.active = kind
	res := s.enter(0, now)
	res.Started = kind
	return res, true
}

// Step advances the running action by at most one stage.
func (s *Sequencer) Step(now time.Time) SequenceResult {
	if s.active == ActionNone {
		return SequenceResult{}
	}
	plan := s.plans[s.active]
	if now.Sub(s.stageStart) < plan[s.stageIdx].duration {
		return SequenceResult{}
	}
	if s.stageIdx+1 < len(plan) {
		return s.enter(s.stageIdx+1, now)
	}
	return s.complete(now)
}

func (s *Sequencer) enter(idx int, now time.Time) SequenceResult {
	st := s.plans[s.active][idx]
	s.stageIdx = idx
	s.stageStart = now
	if st.ventilates {
		s.state.LastVentilation = now
	}
	return SequenceResult{
		Commands: append([]Command(nil), st.commands...),
		Stage:    st.name,
	}
}

func (s *Sequencer) complete(now time.Time) SequenceResult {
	done := s.active
	switch done {
	case ActionRHDown:
		s.state.RHUpLockoutUntil = now.Add(s.lockout)
	case ActionRHUp:
		s.state.RHDownLockoutUntil = now.Add(s.lockout)
	}
	s.active = ActionNone
	s.stageIdx = 0
	return SequenceResult{Commands: allOff(), Completed: done}
}

// allOff switches off every output the sequencer owns. The heater belongs to
// the heater loop and is left alone.
func allOff() []Command {
	return []Command{
		{Channel: ChannelMixing, On: false},
		{Channel: ChannelFreshAir, On: false},
		{Channel: ChannelFogger, On: false},
	}
}
