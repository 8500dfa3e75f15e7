// Package status provides a thread-safe status tracker for the chamber controller.
// It is written by the run loop and read by HTTP handlers and system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/chamber-controller/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Speedup          int
	TickMs           int64
	SampleIntervalMs int64
	HeartbeatMs      int64
	HistorySize      int
	StoragePath      string // empty = RAM only
	Slots            int
	Broker           string // empty = MQTT disabled
	KafkaBrokers     string // empty = Kafka disabled
	HTTPAddr         string
}

// StorageInfo describes the slot log behind the setpoints.
type StorageInfo struct {
	Available bool
	Cursor    int
	Slots     int
	Writes    int
	Failures  int
	Erases    int
	Dirty     bool
}

// ControllerState is what the controller exposes after each tick.
// Slices are fresh copies owned by the receiver.
type ControllerState struct {
	Setpoints   logic.Setpoints
	Outputs     logic.Actuators
	Action      logic.ActionKind
	ActionStage string
	Measurement logic.Stage
	Collected   int
	LastSample  *logic.Sample
	LastReading *logic.Reading
	Lockouts    logic.DecisionState
	Values      []uint16
	Storage     StorageInfo
	Telemetry   logic.TelemetrySnapshot
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	Controller    ControllerState
	RunID         string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether at least one sensor sample has been taken.
func (s Snapshot) Ready() bool {
	return s.Controller.LastSample != nil
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, run ID and config.
func NewTracker(startTime time.Time, runID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			RunID:     runID,
			Config:    cfg,
		},
	}
}

// Update replaces the controller state.
// Called from runLoop after every tick.
func (t *Tracker) Update(st ControllerState) {
	t.mu.Lock()
	t.snap.Controller = st
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
