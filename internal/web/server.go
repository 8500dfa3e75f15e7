// Package web provides the HTTP interface of the chamber controller: a status
// page, JSON status and telemetry, setpoint and payload value endpoints, and
// Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sweeney/chamber-controller/internal/controller"
	"github.com/sweeney/chamber-controller/internal/metrics"
	"github.com/sweeney/chamber-controller/internal/status"
	"github.com/sweeney/chamber-controller/internal/storage"
)

// requestTimeout bounds how long a write waits for the control loop.
const requestTimeout = 5 * time.Second

// Controls runs fn on the goroutine that owns the controller.
// *controller.Mailbox implements it.
type Controls interface {
	Do(ctx context.Context, fn func(c *controller.Controller, now time.Time)) error
}

// Server serves the status page and API over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	controls   Controls
	metrics    *metrics.Metrics
}

// New creates a Server that reads state from tracker and sends writes
// through controls. m may be nil, which disables /metrics.
func New(addr string, tracker *status.Tracker, controls Controls, m *metrics.Metrics) *Server {
	s := &Server{tracker: tracker, controls: controls, metrics: m}

	r := mux.NewRouter()
	s.handle(r, "/", s.handleIndex, http.MethodGet)
	s.handle(r, "/index.html", s.handleIndex, http.MethodGet)
	s.handle(r, "/index.json", s.handleJSON, http.MethodGet)
	s.handle(r, "/api/telemetry", s.handleTelemetry, http.MethodGet)
	s.handle(r, "/api/setpoints", s.handleGetSetpoints, http.MethodGet)
	s.handle(r, "/api/setpoints", s.handlePutSetpoints, http.MethodPut)
	s.handle(r, "/api/values", s.handleGetValues, http.MethodGet)
	s.handle(r, "/api/values/{index:[0-9]+}", s.handlePutValue, http.MethodPut)
	s.handle(r, "/api/values/{index:[0-9]+}/inc", s.handleIncValue, http.MethodPost)
	s.handle(r, "/inc", s.handleInc, http.MethodPost)
	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handlers.LoggingHandler(log.Writer(), r),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) handle(r *mux.Router, path string, h http.HandlerFunc, method string) {
	r.Handle(path, s.metrics.WrapHandler(path, h)).Methods(method)
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// SetpointsUpdate is the body of PUT /api/setpoints. Omitted fields are left
// unchanged.
type SetpointsUpdate struct {
	CO2  *int     `json:"co2_ppm,omitempty"`
	RH   *float64 `json:"rh_percent,omitempty"`
	Temp *float64 `json:"temp_c,omitempty"`
}

// ValueUpdate is the body of PUT /api/values/{index}.
type ValueUpdate struct {
	Value *int `json:"value"`
}

// ValueJSON is a single payload value.
type ValueJSON struct {
	Index int    `json:"index"`
	Value uint16 `json:"value"`
}

// ValuesJSON lists every payload value.
type ValuesJSON struct {
	Values []uint16 `json:"values"`
}

// CountJSON is the response of POST /inc.
type CountJSON struct {
	Count uint16 `json:"count"`
}

// ErrorJSON is returned with every 4xx and 5xx response.
type ErrorJSON struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatTelemetry(snap))
}

func (s *Server) handleGetSetpoints(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	writeJSON(w, http.StatusOK, status.NewSetpointsJSON(snap.Controller.Setpoints))
}

func (s *Server) handlePutSetpoints(w http.ResponseWriter, r *http.Request) {
	var upd SetpointsUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if upd.CO2 == nil && upd.RH == nil && upd.Temp == nil {
		writeError(w, http.StatusBadRequest, "no setpoint given")
		return
	}

	var out status.SetpointsJSON
	err := s.do(r, func(c *controller.Controller, now time.Time) {
		if upd.CO2 != nil {
			c.SetCO2Setpoint(*upd.CO2, now)
		}
		if upd.RH != nil {
			c.SetRHSetpoint(*upd.RH, now)
		}
		if upd.Temp != nil {
			c.SetTempSetpoint(*upd.Temp, now)
		}
		out = status.NewSetpointsJSON(c.Setpoints())
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetValues(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	values := snap.Controller.Values
	if values == nil {
		values = []uint16{}
	}
	writeJSON(w, http.StatusOK, ValuesJSON{Values: values})
}

func (s *Server) handlePutValue(w http.ResponseWriter, r *http.Request) {
	i, ok := indexVar(w, r)
	if !ok {
		return
	}
	var upd ValueUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if upd.Value == nil || *upd.Value < 0 || *upd.Value > 0xFFFF {
		writeError(w, http.StatusBadRequest, "value must be between 0 and 65535")
		return
	}

	var (
		v      uint16
		setErr error
	)
	err := s.do(r, func(c *controller.Controller, now time.Time) {
		if setErr = c.SetValue(i, uint16(*upd.Value), now); setErr != nil {
			return
		}
		v, setErr = c.Value(i)
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeValue(w, i, v, setErr)
}

func (s *Server) handleIncValue(w http.ResponseWriter, r *http.Request) {
	i, ok := indexVar(w, r)
	if !ok {
		return
	}
	var (
		v      uint16
		incErr error
	)
	err := s.do(r, func(c *controller.Controller, now time.Time) {
		v, incErr = c.IncrementValue(i, now)
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeValue(w, i, v, incErr)
}

func (s *Server) handleInc(w http.ResponseWriter, r *http.Request) {
	var (
		v      uint16
		incErr error
	)
	err := s.do(r, func(c *controller.Controller, now time.Time) {
		v, incErr = c.IncrementValue(storage.IndexCounter, now)
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if incErr != nil {
		writeError(w, http.StatusInternalServerError, incErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, CountJSON{Count: v})
}

// writeValue reports the outcome of a value operation that ran.
func writeValue(w http.ResponseWriter, i int, v uint16, opErr error) {
	switch {
	case errors.Is(opErr, storage.ErrIndex):
		writeError(w, http.StatusNotFound, opErr.Error())
	case opErr != nil:
		writeError(w, http.StatusInternalServerError, opErr.Error())
	default:
		writeJSON(w, http.StatusOK, ValueJSON{Index: i, Value: v})
	}
}

// do runs fn on the control loop, bounded by requestTimeout.
func (s *Server) do(r *http.Request, fn func(c *controller.Controller, now time.Time)) error {
	if s.controls == nil {
		return errors.New("controller not available")
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	return s.controls.Do(ctx, fn)
}

func indexVar(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return 0, false
	}
	return i, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorJSON{Error: msg})
}
