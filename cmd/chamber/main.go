// Command chamber runs the climate chamber controller: it samples the
// chamber sensors, corrects CO2 and humidity with timed actuator sequences,
// regulates the heater, persists setpoints and publishes events to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/chamber-controller/internal/controller"
	"github.com/sweeney/chamber-controller/internal/gpio"
	"github.com/sweeney/chamber-controller/internal/kafka"
	"github.com/sweeney/chamber-controller/internal/logic"
	"github.com/sweeney/chamber-controller/internal/metrics"
	"github.com/sweeney/chamber-controller/internal/mqtt"
	"github.com/sweeney/chamber-controller/internal/sensor"
	"github.com/sweeney/chamber-controller/internal/status"
	"github.com/sweeney/chamber-controller/internal/storage"
	"github.com/sweeney/chamber-controller/internal/web"
)

type options struct {
	speedup        int
	tick           time.Duration
	sampleInterval time.Duration
	history        int
	storagePath    string
	slots          int
	broker         string
	heartbeat      time.Duration
	httpAddr       string
	kafkaBrokers   string
	kafkaTopic     string
	gpioChip       string
	pins           gpio.Pins
	activeLow      bool
	fakeGPIO       bool
	seed           int64
	printSetpoints bool
}

func main() {
	var o options
	flag.IntVar(&o.speedup, "speedup", 1, "Divide every control duration by this factor")
	flag.DurationVar(&o.tick, "tick", 100*time.Millisecond, "Control loop period")
	flag.DurationVar(&o.sampleInterval, "sample-interval", controller.DefaultConfig().SampleInterval, "Telemetry sampling interval")
	flag.IntVar(&o.history, "history", controller.DefaultConfig().HistorySize, "Telemetry samples kept per channel")
	flag.StringVar(&o.storagePath, "storage", "", "Setpoint storage image file (empty for RAM only)")
	flag.IntVar(&o.slots, "slots", storage.DefaultNumSlots, "Number of storage slots")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.httpAddr, "http", ":8080", "HTTP address (empty to disable)")
	flag.StringVar(&o.kafkaBrokers, "kafka", "", "Comma-separated Kafka brokers for telemetry (empty to disable)")
	flag.StringVar(&o.kafkaTopic, "kafka-topic", kafka.Topic, "Kafka telemetry topic")
	flag.StringVar(&o.gpioChip, "gpio-chip", "gpiochip0", "GPIO chip for the relay outputs")
	flag.IntVar(&o.pins.Mixing, "pin-mixing", gpio.DefaultPins.Mixing, "BCM pin for the mixing fan")
	flag.IntVar(&o.pins.FreshAir, "pin-fresh-air", gpio.DefaultPins.FreshAir, "BCM pin for the fresh-air fan")
	flag.IntVar(&o.pins.Fogger, "pin-fogger", gpio.DefaultPins.Fogger, "BCM pin for the fogger")
	flag.IntVar(&o.pins.Heater, "pin-heater", gpio.DefaultPins.Heater, "BCM pin for the heater")
	flag.BoolVar(&o.activeLow, "active-low", false, "Relays switch on a low output")
	flag.BoolVar(&o.fakeGPIO, "fake-gpio", false, "Record outputs in memory instead of driving GPIO")
	flag.Int64Var(&o.seed, "seed", 0, "Sensor simulator seed (0 for time-based)")
	flag.BoolVar(&o.printSetpoints, "print-setpoints", false, "Print stored setpoints and exit")

	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	// Storage
	var dev storage.BlockDevice
	if o.storagePath != "" {
		fd := storage.NewFileDevice(o.storagePath)
		defer fd.Close()
		dev = fd
	}
	store := storage.NewStore(storage.OpenLog(dev, o.slots), storage.DefaultDebounce)

	if o.printSetpoints {
		found := store.Load(time.Now())
		sp := store.Setpoints()
		fmt.Printf("CO2: %dppm, RH: %.1f%%, Temp: %.1fC (stored: %v)\n", sp.CO2, sp.RH, sp.Temp, found)
		return nil
	}

	// Outputs
	var out gpio.Actuators
	if o.fakeGPIO {
		out = gpio.NewFakeActuators()
	} else {
		ra, err := gpio.NewRealActuators(o.gpioChip, o.pins, o.activeLow)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		out = ra
	}
	defer out.Close()

	seed := o.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cfg := controller.DefaultConfig()
	cfg.Speedup = o.speedup
	cfg.SampleInterval = o.sampleInterval
	cfg.HistorySize = o.history
	sim := sensor.NewSimulator(seed, cfg.ScaledSampleInterval(), time.Now)
	ctrl := controller.New(cfg, sim, out, store)
	ctrl.Init(time.Now())

	runID := uuid.NewString()

	// MQTT
	var publisher mqtt.Publisher = nopPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if o.broker != "" {
		p := mqtt.NewRealPublisher(o.broker, "chamber-"+runID[:8], time.Now)
		publisher, mqttStatus = p, p
	}
	defer publisher.Close()

	// Kafka
	var sink telemetrySink
	if o.kafkaBrokers != "" {
		s := kafka.NewSink(kafka.NewWriter(strings.Split(o.kafkaBrokers, ","), o.kafkaTopic), runID, 1024)
		defer s.Close()
		sink = s
	}

	// Status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), runID, status.Config{
		Speedup:          cfg.Speedup,
		TickMs:           o.tick.Milliseconds(),
		SampleIntervalMs: o.sampleInterval.Milliseconds(),
		HeartbeatMs:      o.heartbeat.Milliseconds(),
		HistorySize:      o.history,
		StoragePath:      o.storagePath,
		Slots:            o.slots,
		Broker:           o.broker,
		KafkaBrokers:     o.kafkaBrokers,
		HTTPAddr:         o.httpAddr,
	})
	tracker.Update(ctrl.Observe())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	m := metrics.New()
	mailbox := controller.NewMailbox(16)

	// Start HTTP server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, mailbox, m)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http server listening on %s", o.httpAddr)
	}

	log.Printf("started: run=%s speedup=%d tick=%v sample=%v broker=%s heartbeat=%v",
		runID, o.speedup, o.tick, o.sampleInterval, o.broker, o.heartbeat)

	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		ctrl:       ctrl,
		mailbox:    mailbox,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		sink:       sink,
		metrics:    m,
		feedback:   sim,
		heartbeat:  o.heartbeat,
	}, time.Now, ticker.C, sigCh)
}

// telemetrySink receives samples and events for streaming. *kafka.Sink
// implements it.
type telemetrySink interface {
	PublishSample(ts time.Time, s logic.Sample, a logic.Actuators)
	PublishEvent(e logic.Event)
}

// feedback lets a simulated chamber react to the outputs.
type feedback interface {
	Apply(a logic.Actuators)
}

// loopDeps are the collaborators of runLoop. Everything but ctrl and
// publisher may be nil.
type loopDeps struct {
	ctrl       *controller.Controller
	mailbox    *controller.Mailbox
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	sink       telemetrySink
	metrics    *metrics.Metrics
	feedback   feedback
	heartbeat  time.Duration
}

func runLoop(d loopDeps, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()
	lastSamples := d.ctrl.Stats().Samples

	var requests <-chan controller.Request
	if d.mailbox != nil {
		requests = d.mailbox.Requests()
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			t := now()
			if err := d.ctrl.SaveNow(t); err != nil {
				log.Printf("failed to save setpoints: %v", err)
			}
			event := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if d.tracker != nil {
				d.refresh()
				event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case req := <-requests:
			req.Run(d.ctrl, now())
			d.refresh()

		case <-tick:
			t := now()
			events := d.ctrl.Tick(t)

			for _, event := range events {
				if err := d.publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
				if d.sink != nil {
					d.sink.PublishEvent(event)
				}
			}
			d.metrics.Observe(events)

			if n := d.ctrl.Stats().Samples; n != lastSamples {
				lastSamples = n
				if s, ok := d.ctrl.LastSample(); ok && d.sink != nil {
					d.sink.PublishSample(t, s, d.ctrl.Outputs())
				}
			}
			if d.feedback != nil {
				d.feedback.Apply(d.ctrl.Outputs())
			}

			d.refresh()

			// Check for heartbeat
			if d.heartbeat > 0 && t.Sub(lastHeartbeat) >= d.heartbeat {
				lastHeartbeat = t
				sp := d.ctrl.Setpoints()
				log.Printf("heartbeat: setpoints co2=%dppm rh=%.1f%% temp=%.1fC", sp.CO2, sp.RH, sp.Temp)

				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if d.tracker != nil {
					hbEvent.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// refresh publishes controller state to the tracker and metrics.
func (d loopDeps) refresh() {
	if d.tracker == nil {
		return
	}
	d.tracker.Update(d.ctrl.Observe())
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	d.metrics.Update(d.tracker.Snapshot())
}

// nopPublisher is used when MQTT is disabled.
type nopPublisher struct{}

func (nopPublisher) Publish(logic.Event) error            { return nil }
func (nopPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (nopPublisher) Close() error                         { return nil }
