// Package telemetry streams per-tick observations and race events to
// InfluxDB as line-protocol points.
package telemetry

import (
	"context"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/opd-ai/go-racer/pkg/clock"
	"github.com/opd-ai/go-racer/pkg/config"
	"github.com/opd-ai/go-racer/pkg/control"
	"github.com/opd-ai/go-racer/pkg/event"
	"github.com/opd-ai/go-racer/pkg/logging"
)

// Measurement names.
const (
	ObservationMeasurement = "observation"
	LapMeasurement         = "lap"
	CollisionMeasurement   = "collision"
)

// PointWriter is the subset of the influx non-blocking write API the sink
// uses.
type PointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// InfluxSink samples observations every few ticks and writes them with the
// race's lap and collision events. Writes are asynchronous; failures are
// logged by the client's error channel and never block a tick.
type InfluxSink struct {
	writer PointWriter
	client influxdb2.Client
	raceID string
	every  uint64
	clock  clock.Clock
	logger *logging.Logger

	mu   sync.Mutex
	subs []*event.Subscription
}

// NewInfluxSink connects to the server described by cfg. The connection is
// lazy; nothing is sent until the first flush.
func NewInfluxSink(cfg config.InfluxConfig, raceID string, clk clock.Clock, log *logging.Logger) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000))
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	s := NewSink(writeAPI, raceID, cfg.Every, clk, log)
	s.client = client

	errorsCh := writeAPI.Errors()
	go func() {
		for err := range errorsCh {
			s.logger.Error(context.Background(), "failed to write telemetry", err, "bucket", cfg.Bucket)
		}
	}()
	return s
}

// NewSink creates a sink over any point writer. every below 1 samples every
// tick.
func NewSink(w PointWriter, raceID string, every int, clk clock.Clock, log *logging.Logger) *InfluxSink {
	if every < 1 {
		every = 1
	}
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &InfluxSink{
		writer: w,
		raceID: raceID,
		every:  uint64(every),
		clock:  clk,
		logger: log,
	}
}

// Observe writes one point per car when tick falls on the sampling interval.
func (s *InfluxSink) Observe(_ context.Context, tick uint64, at time.Time, obs []control.Observation) {
	if tick%s.every != 0 {
		return
	}
	for _, o := range obs {
		s.writer.WritePoint(ObservationPoint(s.raceID, o, at))
	}
}

// Attach subscribes the sink to lap and collision events on bus.
func (s *InfluxSink) Attach(bus *event.Bus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs,
		bus.Subscribe(event.LapCompleted, s.onEvent),
		bus.Subscribe(event.TrackCollision, s.onEvent),
		bus.Subscribe(event.VehicleCollision, s.onEvent),
	)
}

func (s *InfluxSink) onEvent(e event.Event) {
	if p := EventPoint(s.raceID, e, s.clock.Now()); p != nil {
		s.writer.WritePoint(p)
	}
}

// Close flushes pending points, drops subscriptions and closes the client.
func (s *InfluxSink) Close() {
	s.mu.Lock()
	for _, sub := range s.subs {
		sub.Cancel()
	}
	s.subs = nil
	s.mu.Unlock()

	s.writer.Flush()
	if s.client != nil {
		s.client.Close()
	}
}

// ObservationPoint converts one car's observation to a point.
func ObservationPoint(raceID string, o control.Observation, at time.Time) *write.Point {
	return write.NewPoint(ObservationMeasurement,
		map[string]string{
			"race": raceID,
			"car":  strconv.Itoa(o.Index),
		},
		map[string]interface{}{
			"tick":             int64(o.Tick),
			"x":                o.Position.X,
			"y":                o.Position.Y,
			"heading":          o.Heading,
			"steering":         o.Steering,
			"speed":            o.Speed,
			"lap":              o.LapNumber,
			"lap_progress":     o.LapProgress,
			"current_lap_time": o.CurrentLapTime,
			"boost_energy":     o.BoostEnergy,
			"boost_active":     o.BoostActive,
			"stunned":          o.Stunned,
		},
		at)
}

// EventPoint converts a lap or collision event to a point. Other events
// return nil.
func EventPoint(raceID string, e event.Event, at time.Time) *write.Point {
	switch ev := e.(type) {
	case *event.LapEvent:
		return write.NewPoint(LapMeasurement,
			map[string]string{"race": raceID, "car": strconv.Itoa(ev.Car)},
			map[string]interface{}{
				"lap":      ev.Lap,
				"lap_time": ev.LapTime,
				"tick":     int64(ev.GetTick()),
			},
			at)
	case *event.CollisionEvent:
		kind := "track"
		if ev.GetType() == event.VehicleCollision {
			kind = "vehicle"
		}
		return write.NewPoint(CollisionMeasurement,
			map[string]string{"race": raceID, "car": strconv.Itoa(ev.Car), "kind": kind},
			map[string]interface{}{
				"other": ev.Other,
				"speed": ev.Speed,
				"tick":  int64(ev.GetTick()),
			},
			at)
	}
	return nil
}
