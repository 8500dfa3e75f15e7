package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/chamber-controller/internal/logic"
)

func sampleState() ControllerState {
	return ControllerState{
		Setpoints:   logic.Setpoints{CO2: 800, RH: 90, Temp: 25},
		Outputs:     logic.Actuators{FreshAir: true, Heater: true},
		Action:      logic.ActionRHDown,
		ActionStage: "FRESH_AIR",
		Measurement: logic.StageWait,
		LastSample:  &logic.Sample{CO2: 812, RH: 97.5, Temp: 24.1, TempOuter: 19.5},
		LastReading: &logic.Reading{CO2: 810, RH: 97.4, Temp: 24.0},
		Lockouts: logic.DecisionState{
			LastVentilation: time.Date(2026, 1, 1, 0, 10, 0, 0, time.UTC),
		},
		Values:  []uint16{3, 800, 900, 250, 0, 0, 0, 0, 0, 0},
		Storage: StorageInfo{Available: true, Cursor: 4, Slots: 100, Writes: 4},
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{Speedup: 10, TickMs: 100, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, "run-1", cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.RunID != "run-1" {
		t.Errorf("RunID: got %q, want run-1", snap.RunID)
	}
	if snap.Config.Speedup != 10 {
		t.Errorf("Config.Speedup: got %d, want 10", snap.Config.Speedup)
	}
	if snap.Ready() {
		t.Error("expected Ready=false before first sample")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), "", Config{})
	tr.Update(sampleState())

	snap := tr.Snapshot()
	if snap.Controller.Action != logic.ActionRHDown {
		t.Errorf("Action: got %q, want RH_DOWN", snap.Controller.Action)
	}
	if !snap.Ready() {
		t.Error("expected Ready=true after a sample")
	}
	if snap.Controller.Setpoints.CO2 != 800 {
		t.Errorf("CO2 setpoint: got %d, want 800", snap.Controller.Setpoints.CO2)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), "", Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "", Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), "", Config{})
	tr.Update(sampleState())

	snap1 := tr.Snapshot()

	next := sampleState()
	next.Action = logic.ActionNone
	next.Outputs = logic.Actuators{}
	tr.Update(next)

	if snap1.Controller.Action != logic.ActionRHDown {
		t.Error("snapshot should be a copy; Action was modified")
	}
	if !snap1.Controller.Outputs.FreshAir {
		t.Error("snapshot should be a copy; Outputs were modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Controller:    sampleState(),
		RunID:         "3f1c",
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Speedup: 1, TickMs: 100, Broker: "tcp://localhost:1883", HTTPAddr: ":8080", Slots: 100},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.RunID != "3f1c" {
		t.Errorf("RunID: got %q", s.RunID)
	}
	if !s.Ready {
		t.Error("expected Ready=true")
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Setpoints.RH != 90 || s.Setpoints.CO2 != 800 {
		t.Errorf("Setpoints: got %+v", s.Setpoints)
	}
	if !s.Outputs.FreshAir || s.Outputs.Mixing {
		t.Errorf("Outputs: got %+v", s.Outputs)
	}
	if s.Action.Kind != "RH_DOWN" || s.Action.Stage != "FRESH_AIR" {
		t.Errorf("Action: got %+v", s.Action)
	}
	if s.Action.LastVentilation != "2026-01-01T00:10:00Z" {
		t.Errorf("LastVentilation: got %q", s.Action.LastVentilation)
	}
	if s.Action.RHUpLockoutUntil != "" {
		t.Errorf("zero lockout should be omitted, got %q", s.Action.RHUpLockoutUntil)
	}
	if s.Measurement.Stage != "WAIT" || s.Measurement.Reading == nil || s.Measurement.Reading.RH != 97.4 {
		t.Errorf("Measurement: got %+v", s.Measurement)
	}
	if s.Sample == nil || s.Sample.TempOuter != 19.5 {
		t.Errorf("Sample: got %+v", s.Sample)
	}
	if len(s.Values) != 10 || s.Values[0] != 3 {
		t.Errorf("Values: got %v", s.Values)
	}
	if !s.Storage.Available || s.Storage.Cursor != 4 {
		t.Errorf("Storage: got %+v", s.Storage)
	}
	if s.Config.HTTPAddr != ":8080" {
		t.Errorf("Config.HTTPAddr: got %q", s.Config.HTTPAddr)
	}
	// Event and Reason should be omitted
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty Event/Reason for web format, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONIdleDefaults(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Action.Kind != "NONE" {
		t.Errorf("Action.Kind: got %q, want NONE", parsed.Status.Action.Kind)
	}
	if parsed.Status.Action.Stage != "IDLE" {
		t.Errorf("Action.Stage: got %q, want IDLE", parsed.Status.Action.Stage)
	}
	if parsed.Status.Measurement.Stage != "IDLE" {
		t.Errorf("Measurement.Stage: got %q, want IDLE", parsed.Status.Measurement.Stage)
	}
	if parsed.Status.Sample != nil {
		t.Error("expected no sample before the first read")
	}
	if parsed.Status.Values == nil {
		t.Error("values should encode as an empty array, not null")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Controller: sampleState(),
		StartTime:  start,
		Now:        start.Add(15 * time.Minute),
		Config:     Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	// Verify "reason" is not in the raw JSON output
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatTelemetry(t *testing.T) {
	tel := logic.NewTelemetry(3)
	tel.Record(logic.Sample{CO2: 900, RH: 91.2}, logic.Actuators{Mixing: true})

	st := sampleState()
	st.Telemetry = tel.Snapshot()
	snap := Snapshot{
		Controller: st,
		Now:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Config:     Config{SampleIntervalMs: 3000},
	}

	data := FormatTelemetry(snap)

	var parsed TelemetryJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.SampleIntervalMs != 3000 {
		t.Errorf("SampleIntervalMs: got %d", parsed.SampleIntervalMs)
	}
	if parsed.Action != "RH_DOWN" || parsed.Stage != "FRESH_AIR" {
		t.Errorf("action: got %q/%q", parsed.Action, parsed.Stage)
	}
	co2 := parsed.Telemetry.CO2
	if len(co2) != 3 || co2[0] != 0 || co2[2] != 900 {
		t.Errorf("co2: got %v", co2)
	}
	if m := parsed.Telemetry.Mixing; len(m) != 3 || m[2] != 1 {
		t.Errorf("mixing: got %v", m)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), "", Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			st := sampleState()
			st.Collected = i
			tr.Update(st)
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
