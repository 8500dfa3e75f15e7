// Package metrics exposes controller state as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/chamber-controller/internal/logic"
	"github.com/sweeney/chamber-controller/internal/status"
)

// Metrics holds the chamber collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	sample    *prometheus.GaugeVec
	reading   *prometheus.GaugeVec
	setpoint  *prometheus.GaugeVec
	output    *prometheus.GaugeVec
	action    *prometheus.GaugeVec
	mqtt      prometheus.Gauge
	available prometheus.Gauge
	cursor    prometheus.Gauge

	actions      *prometheus.CounterVec
	heater       *prometheus.CounterVec
	slotWrites   prometheus.Counter
	slotFailures prometheus.Counter
	slotErases   prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	lastWrites, lastFailures, lastErases int
}

// New creates and registers the chamber metrics.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		sample: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chamber_sample",
			Help: "Most recent raw sensor sample by channel.",
		}, []string{"channel"}),
		reading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chamber_reading",
			Help: "Most recent median-filtered reading by quantity.",
		}, []string{"quantity"}),
		setpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chamber_setpoint",
			Help: "Control setpoint by quantity.",
		}, []string{"quantity"}),
		output: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chamber_output_on",
			Help: "Actuator state by channel (1 on, 0 off).",
		}, []string{"channel"}),
		action: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chamber_action_active",
			Help: "Running corrective action (1 active, 0 idle).",
		}, []string{"action"}),
		mqtt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chamber_mqtt_connected",
			Help: "Broker connection state (1 connected, 0 disconnected).",
		}),
		available: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chamber_storage_available",
			Help: "Persistent storage state (1 device, 0 volatile fallback).",
		}),
		cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chamber_storage_cursor",
			Help: "Slot index the next write goes to.",
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chamber_actions_started_total",
			Help: "Corrective actions started by kind.",
		}, []string{"action"}),
		heater: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chamber_heater_switches_total",
			Help: "Heater switch events by direction.",
		}, []string{"state"}),
		slotWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chamber_storage_slot_writes_total",
			Help: "Slots written to the persistent log.",
		}),
		slotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chamber_storage_slot_write_failures_total",
			Help: "Slot writes that failed.",
		}),
		slotErases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chamber_storage_erases_total",
			Help: "Full region erases after the log wrapped.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.reg.MustRegister(
		m.sample, m.reading, m.setpoint, m.output, m.action,
		m.mqtt, m.available, m.cursor,
		m.actions, m.heater, m.slotWrites, m.slotFailures, m.slotErases,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Observe counts controller events.
func (m *Metrics) Observe(events []logic.Event) {
	if m == nil {
		return
	}
	for _, e := range events {
		switch e.Type {
		case logic.EventActionStarted:
			m.actions.WithLabelValues(string(e.Action)).Inc()
		case logic.EventHeaterOn:
			m.heater.WithLabelValues("on").Inc()
		case logic.EventHeaterOff:
			m.heater.WithLabelValues("off").Inc()
		}
	}
}

// Update sets the gauges from a status snapshot.
func (m *Metrics) Update(snap status.Snapshot) {
	if m == nil {
		return
	}
	st := snap.Controller

	if s := st.LastSample; s != nil {
		m.sample.WithLabelValues("co2").Set(float64(s.CO2))
		m.sample.WithLabelValues("co2_2").Set(float64(s.CO2Secondary))
		m.sample.WithLabelValues("rh").Set(s.RH)
		m.sample.WithLabelValues("rh_2").Set(s.RHSecondary)
		m.sample.WithLabelValues("temp").Set(s.Temp)
		m.sample.WithLabelValues("temp_2").Set(s.TempSecondary)
		m.sample.WithLabelValues("temp_outer").Set(s.TempOuter)
	}
	if r := st.LastReading; r != nil {
		m.reading.WithLabelValues("co2").Set(float64(r.CO2))
		m.reading.WithLabelValues("rh").Set(r.RH)
		m.reading.WithLabelValues("temp").Set(r.Temp)
	}

	m.setpoint.WithLabelValues("co2").Set(float64(st.Setpoints.CO2))
	m.setpoint.WithLabelValues("rh").Set(st.Setpoints.RH)
	m.setpoint.WithLabelValues("temp").Set(st.Setpoints.Temp)

	for _, ch := range logic.Channels {
		m.output.WithLabelValues(string(ch)).Set(boolToFloat(st.Outputs.Get(ch)))
	}
	for _, kind := range []logic.ActionKind{logic.ActionCO2, logic.ActionRHDown, logic.ActionRHUp, logic.ActionBaseline} {
		m.action.WithLabelValues(string(kind)).Set(boolToFloat(st.Action == kind))
	}

	m.mqtt.Set(boolToFloat(snap.MQTTConnected))
	m.available.Set(boolToFloat(st.Storage.Available))
	m.cursor.Set(float64(st.Storage.Cursor))

	// The log keeps cumulative totals; counters advance by the difference.
	m.slotWrites.Add(delta(&m.lastWrites, st.Storage.Writes))
	m.slotFailures.Add(delta(&m.lastFailures, st.Storage.Failures))
	m.slotErases.Add(delta(&m.lastErases, st.Storage.Erases))
}

func delta(last *int, now int) float64 {
	d := now - *last
	*last = now
	if d < 0 {
		return 0
	}
	return float64(d)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts requests and their durations under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}
