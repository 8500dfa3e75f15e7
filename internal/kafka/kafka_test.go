package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/sweeney/chamber-controller/internal/logic"
)

var ts = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func decode(t *testing.T, msg kafkago.Message) Record {
	t.Helper()
	var rec Record
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return rec
}

func TestFormatSample(t *testing.T) {
	s := logic.Sample{CO2: 812, CO2Secondary: 805, RH: 91.2, RHSecondary: 90.8, Temp: 24.5, TempSecondary: 24.4, TempOuter: 19.0}
	msg, err := FormatSample("run-1", ts, s, logic.Actuators{FreshAir: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(msg.Key) != "run-1" {
		t.Errorf("key: got %q, want run-1", msg.Key)
	}
	if !msg.Time.Equal(ts) {
		t.Errorf("time: got %v, want %v", msg.Time, ts)
	}

	rec := decode(t, msg)
	if rec.Kind != KindSample || rec.RunID != "run-1" || rec.Timestamp != "2026-03-01T12:00:00Z" {
		t.Errorf("unexpected header: %+v", rec)
	}
	if rec.Sample == nil || rec.Sample.CO2 != 812 || rec.Sample.TempOuter != 19.0 {
		t.Errorf("unexpected sample: %+v", rec.Sample)
	}
	if rec.Outputs == nil || !rec.Outputs.FreshAir || rec.Outputs.Mixing {
		t.Errorf("unexpected outputs: %+v", rec.Outputs)
	}
	if rec.Event != nil {
		t.Error("sample record should not carry an event")
	}
}

func TestFormatEvent(t *testing.T) {
	msg, err := FormatEvent("run-2", logic.Event{
		Timestamp: ts,
		Type:      logic.EventActionStarted,
		Action:    logic.ActionCO2,
		Stage:     "MIXING",
		Reading:   &logic.Reading{CO2: 1200, RH: 90, Temp: 25},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := decode(t, msg)
	if rec.Kind != KindEvent || rec.Sample != nil {
		t.Errorf("unexpected record: %+v", rec)
	}
	want := EventRecord{Type: "ACTION_STARTED", Action: "CO2_REDUCE", Stage: "MIXING", CO2: 1200, RH: 90, Temp: 25}
	if rec.Event == nil || *rec.Event != want {
		t.Errorf("event: got %+v, want %+v", rec.Event, want)
	}
}

func TestFormatEventHeaterTemp(t *testing.T) {
	msg, _ := FormatEvent("run", logic.Event{Timestamp: ts, Type: logic.EventHeaterOn, Temp: 22.5})
	rec := decode(t, msg)
	if rec.Event.Temp != 22.5 {
		t.Errorf("temp: got %v, want 22.5", rec.Event.Temp)
	}
}

func TestSinkWritesAndCloses(t *testing.T) {
	w := &FakeWriter{}
	s := NewSink(w, "run-3", 16)

	s.PublishSample(ts, logic.Sample{CO2: 700}, logic.Actuators{})
	s.PublishEvent(logic.Event{Timestamp: ts, Type: logic.EventMeasurement, Reading: &logic.Reading{CO2: 700}})

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !w.Closed() {
		t.Error("writer should be closed")
	}

	msgs := w.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if decode(t, msgs[0]).Kind != KindSample || decode(t, msgs[1]).Kind != KindEvent {
		t.Error("messages out of order")
	}

	st := s.Stats()
	if st.Queued != 2 || st.Written != 2 || st.Dropped != 0 || st.Failed != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestSinkWriteErrorIsCounted(t *testing.T) {
	w := &FakeWriter{WriteError: errors.New("broker down")}
	s := NewSink(w, "run", 4)
	s.PublishSample(ts, logic.Sample{}, logic.Actuators{})
	s.Close()

	if st := s.Stats(); st.Failed != 1 || st.Written != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

// blockingWriter holds the first write until released.
type blockingWriter struct {
	FakeWriter
	held    bool
	entered chan struct{}
	release chan struct{}
}

func (b *blockingWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	if !b.held {
		b.held = true
		b.entered <- struct{}{}
		<-b.release
	}
	return b.FakeWriter.WriteMessages(ctx, msgs...)
}

func TestSinkDropsWhenFull(t *testing.T) {
	w := &blockingWriter{entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := NewSink(w, "run", 1)

	s.PublishSample(ts, logic.Sample{CO2: 1}, logic.Actuators{})
	<-w.entered

	s.PublishSample(ts, logic.Sample{CO2: 2}, logic.Actuators{})
	s.PublishSample(ts, logic.Sample{CO2: 3}, logic.Actuators{})
	close(w.release)
	s.Close()

	st := s.Stats()
	if st.Queued != 2 || st.Dropped != 1 || st.Written != 2 {
		t.Errorf("unexpected stats: %+v", st)
	}
	msgs := w.Messages()
	if len(msgs) != 2 || decode(t, msgs[1]).Sample.CO2 != 2 {
		t.Errorf("unexpected messages: %d", len(msgs))
	}
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, Topic)
	if w.Topic != "chamber.telemetry" {
		t.Errorf("topic: got %s", w.Topic)
	}
	if w.RequiredAcks != kafkago.RequireOne {
		t.Errorf("acks: got %v", w.RequiredAcks)
	}
}
