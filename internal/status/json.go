package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/chamber-controller/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	RunID         string          `json:"run_id"`
	Ready         bool            `json:"ready"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Setpoints     SetpointsJSON   `json:"setpoints"`
	Outputs       OutputsJSON     `json:"outputs"`
	Action        ActionJSON      `json:"action"`
	Measurement   MeasurementJSON `json:"measurement"`
	Sample        *SampleJSON     `json:"sample,omitempty"`
	Values        []uint16        `json:"values"`
	Storage       StorageJSON     `json:"storage"`
	Config        ConfigJSON      `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// SetpointsJSON is the JSON representation of the control targets.
type SetpointsJSON struct {
	CO2  uint16  `json:"co2_ppm"`
	RH   float64 `json:"rh_percent"`
	Temp float64 `json:"temp_c"`
}

// OutputsJSON is the JSON representation of the relay states.
type OutputsJSON struct {
	Mixing   bool `json:"mixing"`
	FreshAir bool `json:"fresh_air"`
	Fogger   bool `json:"fogger"`
	Heater   bool `json:"heater"`
}

// ActionJSON describes the running corrective action and lockouts.
type ActionJSON struct {
	Kind               string `json:"kind"`
	Stage              string `json:"stage"`
	RHUpLockoutUntil   string `json:"rh_up_lockout_until,omitempty"`
	RHDownLockoutUntil string `json:"rh_down_lockout_until,omitempty"`
	LastVentilation    string `json:"last_ventilation,omitempty"`
}

// MeasurementJSON describes the measurement cycle.
type MeasurementJSON struct {
	Stage     string       `json:"stage"`
	Collected int          `json:"collected"`
	Reading   *ReadingJSON `json:"reading,omitempty"`
}

// ReadingJSON is a median-filtered reading.
type ReadingJSON struct {
	CO2  int     `json:"co2_ppm"`
	RH   float64 `json:"rh_percent"`
	Temp float64 `json:"temp_c"`
}

// SampleJSON is the latest raw sensor sample.
type SampleJSON struct {
	CO2           int     `json:"co2_ppm"`
	CO2Secondary  int     `json:"co2_2_ppm"`
	RH            float64 `json:"rh_percent"`
	RHSecondary   float64 `json:"rh_2_percent"`
	Temp          float64 `json:"temp_c"`
	TempSecondary float64 `json:"temp_2_c"`
	TempOuter     float64 `json:"temp_outer_c"`
}

// StorageJSON is the JSON representation of the slot log state.
type StorageJSON struct {
	Available bool `json:"available"`
	Cursor    int  `json:"cursor"`
	Slots     int  `json:"slots"`
	Writes    int  `json:"writes"`
	Failures  int  `json:"failures"`
	Erases    int  `json:"erases"`
	Dirty     bool `json:"dirty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Speedup          int    `json:"speedup"`
	TickMs           int64  `json:"tick_ms"`
	SampleIntervalMs int64  `json:"sample_interval_ms"`
	HeartbeatMs      int64  `json:"heartbeat_ms"`
	HistorySize      int    `json:"history_size"`
	StoragePath      string `json:"storage_path,omitempty"`
	Slots            int    `json:"slots"`
	Broker           string `json:"broker,omitempty"`
	KafkaBrokers     string `json:"kafka_brokers,omitempty"`
	HTTPAddr         string `json:"http_addr"`
}

// TelemetryJSON is the history payload for charts and the terminal dashboard.
type TelemetryJSON struct {
	Timestamp        string                  `json:"timestamp"`
	SampleIntervalMs int64                   `json:"sample_interval_ms"`
	Setpoints        SetpointsJSON           `json:"setpoints"`
	Outputs          OutputsJSON             `json:"outputs"`
	Action           string                  `json:"action"`
	Stage            string                  `json:"stage"`
	Telemetry        logic.TelemetrySnapshot `json:"telemetry"`
}

// NewSetpointsJSON converts setpoints for output.
func NewSetpointsJSON(sp logic.Setpoints) SetpointsJSON {
	return SetpointsJSON{CO2: sp.CO2, RH: sp.RH, Temp: sp.Temp}
}

// NewOutputsJSON converts relay states for output.
func NewOutputsJSON(a logic.Actuators) OutputsJSON {
	return OutputsJSON{Mixing: a.Mixing, FreshAir: a.FreshAir, Fogger: a.Fogger, Heater: a.Heater}
}

// ActionName returns the display name of kind, "NONE" when idle.
func ActionName(kind logic.ActionKind) string {
	if kind == logic.ActionNone {
		return "NONE"
	}
	return string(kind)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Controller

	stage := c.ActionStage
	if stage == "" {
		stage = "IDLE"
	}
	measurement := string(c.Measurement)
	if measurement == "" {
		measurement = string(logic.StageIdle)
	}
	values := c.Values
	if values == nil {
		values = []uint16{}
	}

	inner := StatusInner{
		RunID:         snap.RunID,
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Setpoints:     NewSetpointsJSON(c.Setpoints),
		Outputs:       NewOutputsJSON(c.Outputs),
		Action: ActionJSON{
			Kind:               ActionName(c.Action),
			Stage:              stage,
			RHUpLockoutUntil:   formatTime(c.Lockouts.RHUpLockoutUntil),
			RHDownLockoutUntil: formatTime(c.Lockouts.RHDownLockoutUntil),
			LastVentilation:    formatTime(c.Lockouts.LastVentilation),
		},
		Measurement: MeasurementJSON{
			Stage:     measurement,
			Collected: c.Collected,
		},
		Values: values,
		Storage: StorageJSON{
			Available: c.Storage.Available,
			Cursor:    c.Storage.Cursor,
			Slots:     c.Storage.Slots,
			Writes:    c.Storage.Writes,
			Failures:  c.Storage.Failures,
			Erases:    c.Storage.Erases,
			Dirty:     c.Storage.Dirty,
		},
		Config: ConfigJSON{
			Speedup:          snap.Config.Speedup,
			TickMs:           snap.Config.TickMs,
			SampleIntervalMs: snap.Config.SampleIntervalMs,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			HistorySize:      snap.Config.HistorySize,
			StoragePath:      snap.Config.StoragePath,
			Slots:            snap.Config.Slots,
			Broker:           snap.Config.Broker,
			KafkaBrokers:     snap.Config.KafkaBrokers,
			HTTPAddr:         snap.Config.HTTPAddr,
		},
	}

	if r := c.LastReading; r != nil {
		inner.Measurement.Reading = &ReadingJSON{CO2: r.CO2, RH: r.RH, Temp: r.Temp}
	}
	if s := c.LastSample; s != nil {
		inner.Sample = &SampleJSON{
			CO2:           s.CO2,
			CO2Secondary:  s.CO2Secondary,
			RH:            s.RH,
			RHSecondary:   s.RHSecondary,
			Temp:          s.Temp,
			TempSecondary: s.TempSecondary,
			TempOuter:     s.TempOuter,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// FormatTelemetry returns the history payload.
func FormatTelemetry(snap Snapshot) []byte {
	c := snap.Controller
	stage := c.ActionStage
	if stage == "" {
		stage = "IDLE"
	}
	data, _ := json.Marshal(TelemetryJSON{
		Timestamp:        snap.Now.UTC().Format(time.RFC3339),
		SampleIntervalMs: snap.Config.SampleIntervalMs,
		Setpoints:        NewSetpointsJSON(c.Setpoints),
		Outputs:          NewOutputsJSON(c.Outputs),
		Action:           ActionName(c.Action),
		Stage:            stage,
		Telemetry:        c.Telemetry,
	})
	return data
}
