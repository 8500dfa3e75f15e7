package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/chamber-controller/internal/controller"
	"github.com/sweeney/chamber-controller/internal/gpio"
	"github.com/sweeney/chamber-controller/internal/logic"
	"github.com/sweeney/chamber-controller/internal/metrics"
	"github.com/sweeney/chamber-controller/internal/sensor"
	"github.com/sweeney/chamber-controller/internal/status"
	"github.com/sweeney/chamber-controller/internal/storage"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	ts      *httptest.Server
	tracker *status.Tracker
	ctrl    *controller.Controller
}

// newTestServer wires a controller on fakes and serves its mailbox from a
// goroutine, the way the run loop does.
func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	cfg := status.Config{
		Speedup:          1,
		SampleIntervalMs: 3000,
		HeartbeatMs:      900000,
		HistorySize:      20,
		Slots:            10,
		Broker:           "tcp://192.168.1.200:1883",
		HTTPAddr:         ":80",
	}
	tr := status.NewTracker(start, "run-test", cfg)

	ccfg := controller.DefaultConfig()
	ccfg.HistorySize = 20
	store := storage.NewStore(storage.OpenLog(storage.NewFakeDevice(), 10), storage.DefaultDebounce)
	ctrl := controller.New(ccfg, sensor.NewFakeSource(logic.Sample{CO2: 650, RH: 91.5, Temp: 24.8, TempOuter: 12}), gpio.NewFakeActuators(), store)
	ctrl.Init(start)

	mb := controller.NewMailbox(4)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case req := <-mb.Requests():
				req.Run(ctrl, start)
				tr.Update(ctrl.Observe())
			case <-done:
				return
			}
		}
	}()

	srv := New(":0", tr, mb, metrics.New())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		close(done)
	})
	return &testEnv{ts: ts, tracker: tr, ctrl: ctrl}
}

// tick advances the controller once and publishes its state. Only safe
// while no request is in flight.
func (e *testEnv) tick() {
	e.ctrl.Tick(start)
	e.tracker.Update(e.ctrl.Observe())
}

func request(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decode(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

func TestJSONEndpoint(t *testing.T) {
	env := newTestServer(t)
	env.tick()
	env.tracker.SetMQTTConnected(true)

	resp, data := request(t, http.MethodGet, env.ts.URL+"/index.json", "")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	decode(t, data, &sj)

	if sj.Status.RunID != "run-test" {
		t.Errorf("RunID: got %q", sj.Status.RunID)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true after first sample")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Setpoints.CO2 != storage.CO2Default {
		t.Errorf("Setpoints.CO2: got %d, want %d", sj.Status.Setpoints.CO2, storage.CO2Default)
	}
	if sj.Status.Sample == nil || sj.Status.Sample.CO2 != 650 {
		t.Errorf("Sample: got %+v", sj.Status.Sample)
	}
	if sj.Status.Action.Kind != "NONE" {
		t.Errorf("Action.Kind: got %q, want NONE", sj.Status.Action.Kind)
	}
	if sj.Status.Config.HistorySize != 20 {
		t.Errorf("Config.HistorySize: got %d", sj.Status.Config.HistorySize)
	}
}

func TestJSONNotReadyBeforeFirstSample(t *testing.T) {
	env := newTestServer(t)

	_, data := request(t, http.MethodGet, env.ts.URL+"/index.json", "")
	var sj status.StatusJSON
	decode(t, data, &sj)

	if sj.Status.Ready {
		t.Error("expected Ready=false before the first tick")
	}
	if sj.Status.Sample != nil {
		t.Error("expected no sample before the first tick")
	}
}

func TestHTMLEndpoint(t *testing.T) {
	env := newTestServer(t)

	for _, path := range []string{"/", "/index.html"} {
		resp, data := request(t, http.MethodGet, env.ts.URL+path, "")
		if resp.StatusCode != 200 {
			t.Errorf("%s status: got %d, want 200", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s Content-Type: got %q, want text/html", path, ct)
		}
		if !strings.Contains(string(data), "waiting for first sample") {
			t.Errorf("%s should show the waiting placeholder", path)
		}
	}

	env.tick()
	_, data := request(t, http.MethodGet, env.ts.URL+"/", "")
	body := string(data)
	for _, want := range []string{"650 ppm", "91.5 %", `value="800"`, "NONE"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	env := newTestServer(t)

	resp, _ := request(t, http.MethodGet, env.ts.URL+"/nonexistent", "")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestServer(t)

	resp, _ := request(t, http.MethodPost, env.ts.URL+"/api/setpoints", "{}")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
	resp, _ = request(t, http.MethodGet, env.ts.URL+"/inc", "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /inc status: got %d, want 405", resp.StatusCode)
	}
}

func TestTelemetryEndpoint(t *testing.T) {
	env := newTestServer(t)
	env.tick()

	resp, data := request(t, http.MethodGet, env.ts.URL+"/api/telemetry", "")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var tj status.TelemetryJSON
	decode(t, data, &tj)

	if len(tj.Telemetry.CO2) != 20 || len(tj.Telemetry.Heater) != 20 {
		t.Fatalf("history lengths: co2=%d heater=%d, want 20", len(tj.Telemetry.CO2), len(tj.Telemetry.Heater))
	}
	if tj.Telemetry.CO2[19] != 650 || tj.Telemetry.CO2[18] != 0 {
		t.Errorf("newest sample should be last, zero-padded before: %v", tj.Telemetry.CO2[17:])
	}
	if tj.Action != "NONE" || tj.Stage != "IDLE" {
		t.Errorf("action: got %s/%s", tj.Action, tj.Stage)
	}
}

func TestPutSetpointsClamps(t *testing.T) {
	env := newTestServer(t)

	resp, data := request(t, http.MethodPut, env.ts.URL+"/api/setpoints",
		`{"co2_ppm": 20000, "rh_percent": 85.04, "temp_c": 5}`)
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, body %s", resp.StatusCode, data)
	}
	var sp status.SetpointsJSON
	decode(t, data, &sp)

	if sp.CO2 != storage.CO2Max {
		t.Errorf("CO2: got %d, want %d", sp.CO2, storage.CO2Max)
	}
	if sp.RH != 85.0 {
		t.Errorf("RH: got %v, want 85.0", sp.RH)
	}
	if sp.Temp != storage.TempMin {
		t.Errorf("Temp: got %v, want %v", sp.Temp, storage.TempMin)
	}

	_, data = request(t, http.MethodGet, env.ts.URL+"/api/setpoints", "")
	var got status.SetpointsJSON
	decode(t, data, &got)
	if got != sp {
		t.Errorf("GET after PUT: got %+v, want %+v", got, sp)
	}
}

func TestPutSetpointsPartial(t *testing.T) {
	env := newTestServer(t)

	_, data := request(t, http.MethodPut, env.ts.URL+"/api/setpoints", `{"temp_c": 27.5}`)
	var sp status.SetpointsJSON
	decode(t, data, &sp)

	if sp.Temp != 27.5 {
		t.Errorf("Temp: got %v, want 27.5", sp.Temp)
	}
	if sp.CO2 != storage.CO2Default || sp.RH != storage.RHDefault {
		t.Errorf("untouched setpoints changed: %+v", sp)
	}
}

func TestPutSetpointsBadRequest(t *testing.T) {
	env := newTestServer(t)

	for _, body := range []string{"", "not json", "{}"} {
		resp, data := request(t, http.MethodPut, env.ts.URL+"/api/setpoints", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: got %d, want 400", body, resp.StatusCode)
		}
		var ej ErrorJSON
		decode(t, data, &ej)
		if ej.Error == "" {
			t.Errorf("body %q: expected error message", body)
		}
	}
}

func TestValues(t *testing.T) {
	env := newTestServer(t)

	resp, data := request(t, http.MethodPut, env.ts.URL+"/api/values/5", `{"value": 42}`)
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, body %s", resp.StatusCode, data)
	}
	var vj ValueJSON
	decode(t, data, &vj)
	if vj != (ValueJSON{Index: 5, Value: 42}) {
		t.Errorf("PUT response: got %+v", vj)
	}

	_, data = request(t, http.MethodGet, env.ts.URL+"/api/values", "")
	var all ValuesJSON
	decode(t, data, &all)
	if len(all.Values) != storage.NumValues {
		t.Fatalf("values: got %d, want %d", len(all.Values), storage.NumValues)
	}
	if all.Values[5] != 42 || all.Values[storage.IndexCO2] != storage.CO2Default {
		t.Errorf("values: got %v", all.Values)
	}
}

func TestPutValueRepairsSetpointSlot(t *testing.T) {
	env := newTestServer(t)

	_, data := request(t, http.MethodPut, env.ts.URL+"/api/values/1", `{"value": 5}`)
	var vj ValueJSON
	decode(t, data, &vj)
	if vj.Value != storage.CO2Default {
		t.Errorf("out-of-range CO2 slot: got %d, want %d", vj.Value, storage.CO2Default)
	}
}

func TestPutValueErrors(t *testing.T) {
	env := newTestServer(t)

	tests := []struct {
		path, body string
		want       int
	}{
		{"/api/values/999", `{"value": 1}`, http.StatusNotFound},
		{"/api/values/2", `{"value": 70000}`, http.StatusBadRequest},
		{"/api/values/2", `{"value": -1}`, http.StatusBadRequest},
		{"/api/values/2", `{}`, http.StatusBadRequest},
		{"/api/values/abc", `{"value": 1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, _ := request(t, http.MethodPut, env.ts.URL+tt.path, tt.body)
		if resp.StatusCode != tt.want {
			t.Errorf("PUT %s %s: got %d, want %d", tt.path, tt.body, resp.StatusCode, tt.want)
		}
	}
}

func TestIncrementCounter(t *testing.T) {
	env := newTestServer(t)

	for want := uint16(1); want <= 2; want++ {
		resp, data := request(t, http.MethodPost, env.ts.URL+"/inc", "")
		if resp.StatusCode != 200 {
			t.Fatalf("status: got %d", resp.StatusCode)
		}
		var cj CountJSON
		decode(t, data, &cj)
		if cj.Count != want {
			t.Errorf("count: got %d, want %d", cj.Count, want)
		}
	}

	_, data := request(t, http.MethodPost, env.ts.URL+"/api/values/0/inc", "")
	var vj ValueJSON
	decode(t, data, &vj)
	if vj != (ValueJSON{Index: 0, Value: 3}) {
		t.Errorf("inc via values: got %+v", vj)
	}

	resp, _ := request(t, http.MethodPost, env.ts.URL+"/api/values/10/inc", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("inc out of range: got %d, want 404", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestServer(t)
	request(t, http.MethodGet, env.ts.URL+"/index.json", "")

	resp, data := request(t, http.MethodGet, env.ts.URL+"/metrics", "")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if !bytes.Contains(data, []byte(`http_requests_total{route="/index.json",status="200"} 1`)) {
		t.Errorf("request counter missing:\n%s", data)
	}
}

func TestWritesWithoutControls(t *testing.T) {
	tr := status.NewTracker(start, "run", status.Config{})
	srv := New(":0", tr, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, _ := request(t, http.MethodPost, ts.URL+"/inc", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", resp.StatusCode)
	}
	resp, _ = request(t, http.MethodGet, ts.URL+"/metrics", "")
	if resp.StatusCode != 404 {
		t.Errorf("/metrics without registry: got %d, want 404", resp.StatusCode)
	}
}
