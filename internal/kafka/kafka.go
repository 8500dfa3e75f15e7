// Package kafka streams chamber telemetry to a Kafka topic.
//
// Records are queued without blocking and written by a background
// goroutine, so a slow or absent broker never stalls the control loop.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/sweeney/chamber-controller/internal/logic"
)

// Topic is the default telemetry topic.
const Topic = "chamber.telemetry"

// Record kinds.
const (
	KindSample = "sample"
	KindEvent  = "event"
)

// MessageWriter is the subset of *kafkago.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Record is the JSON value of one telemetry message.
type Record struct {
	RunID     string         `json:"run_id"`
	Timestamp string         `json:"timestamp"`
	Kind      string         `json:"kind"`
	Sample    *SampleRecord  `json:"sample,omitempty"`
	Outputs   *OutputsRecord `json:"outputs,omitempty"`
	Event     *EventRecord   `json:"event,omitempty"`
}

// SampleRecord is one raw sensor sample.
type SampleRecord struct {
	CO2           int     `json:"co2_ppm"`
	CO2Secondary  int     `json:"co2_2_ppm"`
	RH            float64 `json:"rh_percent"`
	RHSecondary   float64 `json:"rh_2_percent"`
	Temp          float64 `json:"temp_c"`
	TempSecondary float64 `json:"temp_2_c"`
	TempOuter     float64 `json:"temp_outer_c"`
}

// OutputsRecord is the actuator state at sample time.
type OutputsRecord struct {
	Mixing   bool `json:"mixing"`
	FreshAir bool `json:"fresh_air"`
	Fogger   bool `json:"fogger"`
	Heater   bool `json:"heater"`
}

// EventRecord is a controller transition.
type EventRecord struct {
	Type   string  `json:"type"`
	Action string  `json:"action,omitempty"`
	Stage  string  `json:"stage,omitempty"`
	CO2    int     `json:"co2_ppm,omitempty"`
	RH     float64 `json:"rh_percent,omitempty"`
	Temp   float64 `json:"temp_c,omitempty"`
}

// FormatSample builds the message for a telemetry sample.
func FormatSample(runID string, ts time.Time, s logic.Sample, a logic.Actuators) (kafkago.Message, error) {
	rec := Record{
		RunID:     runID,
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Kind:      KindSample,
		Sample: &SampleRecord{
			CO2:           s.CO2,
			CO2Secondary:  s.CO2Secondary,
			RH:            s.RH,
			RHSecondary:   s.RHSecondary,
			Temp:          s.Temp,
			TempSecondary: s.TempSecondary,
			TempOuter:     s.TempOuter,
		},
		Outputs: &OutputsRecord{Mixing: a.Mixing, FreshAir: a.FreshAir, Fogger: a.Fogger, Heater: a.Heater},
	}
	return message(runID, ts, rec)
}

// FormatEvent builds the message for a controller event.
func FormatEvent(runID string, e logic.Event) (kafkago.Message, error) {
	ev := &EventRecord{
		Type:   string(e.Type),
		Action: string(e.Action),
		Stage:  e.Stage,
	}
	if r := e.Reading; r != nil {
		ev.CO2, ev.RH, ev.Temp = r.CO2, r.RH, r.Temp
	} else if e.Type == logic.EventHeaterOn || e.Type == logic.EventHeaterOff {
		ev.Temp = e.Temp
	}
	rec := Record{
		RunID:     runID,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Kind:      KindEvent,
		Event:     ev,
	}
	return message(runID, e.Timestamp, rec)
}

func message(runID string, ts time.Time, rec Record) (kafkago.Message, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("marshal %s record: %w", rec.Kind, err)
	}
	return kafkago.Message{Key: []byte(runID), Value: b, Time: ts}, nil
}

// NewWriter returns a kafka-go writer for topic on brokers.
func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
	}
}

// Stats counts sink activity.
type Stats struct {
	Queued  int
	Written int
	Dropped int
	Failed  int
}

// Sink queues telemetry messages and writes them in the background.
type Sink struct {
	runID string
	w     MessageWriter
	queue chan kafkago.Message
	done  chan struct{}

	mu    sync.Mutex
	stats Stats
}

// NewSink starts a sink with room for size queued messages. Call Close to
// flush and stop it.
func NewSink(w MessageWriter, runID string, size int) *Sink {
	if size < 1 {
		size = 1
	}
	s := &Sink{
		runID: runID,
		w:     w,
		queue: make(chan kafkago.Message, size),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// PublishSample queues a telemetry sample.
func (s *Sink) PublishSample(ts time.Time, sample logic.Sample, a logic.Actuators) {
	msg, err := FormatSample(s.runID, ts, sample, a)
	if err != nil {
		log.Printf("kafka: %v", err)
		return
	}
	s.enqueue(msg)
}

// PublishEvent queues a controller event.
func (s *Sink) PublishEvent(e logic.Event) {
	msg, err := FormatEvent(s.runID, e)
	if err != nil {
		log.Printf("kafka: %v", err)
		return
	}
	s.enqueue(msg)
}

func (s *Sink) enqueue(msg kafkago.Message) {
	select {
	case s.queue <- msg:
		s.count(func(st *Stats) { st.Queued++ })
	default:
		s.count(func(st *Stats) { st.Dropped++ })
	}
}

func (s *Sink) run() {
	defer close(s.done)
	for msg := range s.queue {
		batch := []kafkago.Message{msg}
	fill:
		for len(batch) < 100 {
			select {
			case m, ok := <-s.queue:
				if !ok {
					break fill
				}
				batch = append(batch, m)
			default:
				break fill
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := s.w.WriteMessages(ctx, batch...)
		cancel()
		n := len(batch)
		if err != nil {
			log.Printf("kafka: write %d messages: %v", n, err)
			s.count(func(st *Stats) { st.Failed += n })
			continue
		}
		s.count(func(st *Stats) { st.Written += n })
	}
}

func (s *Sink) count(f func(*Stats)) {
	s.mu.Lock()
	f(&s.stats)
	s.mu.Unlock()
}

// Stats returns a copy of the sink counters.
func (s *Sink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close writes what is queued, then closes the writer. It must not be called
// concurrently with the Publish methods.
func (s *Sink) Close() error {
	close(s.queue)
	<-s.done
	return s.w.Close()
}
