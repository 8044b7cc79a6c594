// pkg/engine/session.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/opd-ai/go-racer/pkg/clock"
	"github.com/opd-ai/go-racer/pkg/config"
	"github.com/opd-ai/go-racer/pkg/control"
	"github.com/opd-ai/go-racer/pkg/event"
	"github.com/opd-ai/go-racer/pkg/lap"
	"github.com/opd-ai/go-racer/pkg/logging"
	"github.com/opd-ai/go-racer/pkg/physics"
	"github.com/opd-ai/go-racer/pkg/track"
	"github.com/opd-ai/go-racer/pkg/vehicle"
)

var (
	// ErrControllerCount is returned when a session has no controllers.
	ErrControllerCount = errors.New("session needs at least one controller")
	// ErrSessionEnded is returned by Step once the race is over.
	ErrSessionEnded = errors.New("session has ended")
)

// Observation is the per-car view handed to controllers and sinks.
type Observation = control.Observation

// Status is the lifecycle state of a session.
type Status int

const (
	StatusWaiting Status = iota
	StatusActive
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusActive:
		return "active"
	case StatusEnded:
		return "ended"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ObservationSink receives every car's observation after each tick.
type ObservationSink interface {
	Observe(ctx context.Context, tick uint64, at time.Time, obs []Observation)
}

// FinishCondition ends a race early. It is checked after every tick against
// a fresh snapshot.
type FinishCondition interface {
	Finished(state *RaceState) bool
}

// Session runs one race: a fixed set of cars, one controller per car, on a
// single track.
type Session struct {
	cfg         config.SessionConfig
	oracle      track.Oracle
	cars        []*vehicle.Car
	trackers    []*lap.Tracker
	controllers []control.Controller
	failed      []error
	obs         []Observation
	finishers   []int

	clock  clock.Clock
	manual *clock.Manual

	mu           sync.RWMutex
	status       Status
	tick         uint64
	startTime    time.Time
	endTime      time.Time
	lastTick     time.Time
	spatialIndex *physics.QuadTree
	pending      []event.Event

	EventBus *event.Bus

	// CustomFinish, when set, is consulted alongside the lap and tick limits.
	CustomFinish FinishCondition

	sinks   []ObservationSink
	metrics *instruments
	logger  *logging.Logger
}

// Option customizes a Session at construction.
type Option func(*Session)

// WithClock sets the time source. In fixed-step mode a *clock.Manual is
// advanced by the session; any other clock is replaced by a manual one
// starting at its current time.
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger sets the session logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithEventBus publishes session events on an existing bus.
func WithEventBus(b *event.Bus) Option {
	return func(s *Session) { s.EventBus = b }
}

// WithSink adds an observation sink.
func WithSink(sink ObservationSink) Option {
	return func(s *Session) { s.sinks = append(s.sinks, sink) }
}

// WithInstruments records session metrics on the given meter name. An empty
// name disables metrics.
func WithInstruments(meterName string) Option {
	return func(s *Session) {
		s.metrics = newInstruments(meterName, s.logger)
	}
}

// NewSession spawns one car per controller along the track's start line,
// spaced cfg.Session.CarGap apart.
func NewSession(cfg *config.RaceConfig, oracle track.Oracle, controllers []control.Controller, opts ...Option) (*Session, error) {
	if len(controllers) == 0 {
		return nil, ErrControllerCount
	}
	if oracle == nil {
		return nil, fmt.Errorf("%w: no track", track.ErrInvalidTrack)
	}
	checkpoints := oracle.Checkpoints()
	if err := checkpoints.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:         cfg.Session,
		oracle:      oracle,
		controllers: controllers,
		failed:      make([]error, len(controllers)),
		clock:       clock.System{},
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.EventBus == nil {
		s.EventBus = event.NewEventBus()
	}
	if s.metrics == nil {
		s.metrics = newInstruments("", s.logger)
	}
	if s.cfg.FixedStep {
		if m, ok := s.clock.(*clock.Manual); ok {
			s.manual = m
		} else {
			s.manual = clock.NewManual(s.clock.Now())
			s.clock = s.manual
		}
	}

	now := s.clock.Now()
	start := oracle.StartPosition()
	s.cars = make([]*vehicle.Car, len(controllers))
	s.trackers = make([]*lap.Tracker, len(controllers))
	for i := range controllers {
		offset := float64(i) * s.cfg.CarGap
		spawn := start.Add(physics.Vector2D{X: offset})
		startLine := start.Add(physics.Vector2D{X: offset, Y: offset})
		s.cars[i] = vehicle.NewCar(i, spawn, cfg.Vehicle, s.clock)
		s.trackers[i] = lap.NewTracker(checkpoints, oracle.CellSize(), startLine, now)
	}
	s.obs = s.buildObservations(now)

	return s, nil
}

// Start marks the race active, restarts lap timers and publishes
// SessionStarted. Calling it on a running or finished session does nothing.
func (s *Session) Start() {
	s.mu.Lock()
	s.startLocked()
	events := s.drainPending()
	s.mu.Unlock()

	s.publish(events)
}

func (s *Session) startLocked() {
	if s.status != StatusWaiting {
		return
	}
	now := s.clock.Now()
	s.status = StatusActive
	s.startTime = now
	s.lastTick = now
	for _, t := range s.trackers {
		t.Reset(now)
	}
	s.pending = append(s.pending, event.NewSessionEvent(event.SessionStarted, s, s.tick, len(s.cars)))
	s.logger.Info(context.Background(), "race started", "cars", len(s.cars), "checkpoints", s.oracle.Checkpoints().Count())
}

// Stop ends the race and publishes SessionEnded if it was not over already.
func (s *Session) Stop() {
	s.mu.Lock()
	s.endLocked("stopped")
	events := s.drainPending()
	s.mu.Unlock()

	s.publish(events)
}

func (s *Session) endLocked(reason string) {
	if s.status == StatusEnded {
		return
	}
	s.status = StatusEnded
	s.endTime = s.clock.Now()
	s.pending = append(s.pending, event.NewSessionEvent(event.SessionEnded, s, s.tick, len(s.cars)))
	s.logger.Info(context.Background(), "race ended", "reason", reason, "ticks", s.tick, "finishers", len(s.finishers))
}

// Step advances the race by one tick. A waiting session is started first.
// The tick runs in fixed phases: controller inputs for every car, then
// dynamics and collisions, then checkpoints, then observations. Controller
// errors disable that car's controller and are returned after the tick
// completes.
func (s *Session) Step(ctx context.Context) error {
	s.mu.Lock()
	if s.status == StatusEnded {
		s.mu.Unlock()
		return ErrSessionEnded
	}
	s.startLocked()
	if s.manual != nil {
		s.manual.Advance(s.cfg.TickInterval())
	}
	now := s.clock.Now()
	s.tick++

	err := s.applyInputs()
	s.updateCars(ctx)
	s.collectCheckpoints(ctx, now)
	s.lastTick = now
	s.obs = s.buildObservations(now)
	s.checkFinish()

	tick := s.tick
	obs := cloneObservations(s.obs)
	events := s.drainPending()
	s.mu.Unlock()

	s.metrics.ticks.Add(ctx, 1)
	s.publish(events)
	for _, sink := range s.sinks {
		sink.Observe(ctx, tick, now, obs)
	}
	return err
}

// applyInputs lets every controller drive its car from last tick's
// observation. Must be called with the lock held.
func (s *Session) applyInputs() error {
	var errs []error
	for i, c := range s.controllers {
		if s.failed[i] != nil || c == nil {
			continue
		}
		if err := c.Drive(s.cars[i], s.obs[i]); err != nil {
			s.failed[i] = err
			errs = append(errs, fmt.Errorf("controller %d: %w", i, err))
			s.logger.Error(context.Background(), "controller failed", err, "car", i, "tick", s.tick)
		}
	}
	return errors.Join(errs...)
}

// updateCars integrates every car in index order against the peers the
// spatial index reports nearby. Must be called with the lock held.
func (s *Session) updateCars(ctx context.Context) {
	indexed := s.populateSpatialIndex()
	for i, car := range s.cars {
		impact := math.Abs(car.Velocity)
		var peers []*vehicle.Car
		if indexed {
			peers = s.nearbyCars(car)
		} else {
			peers = s.cars
		}
		out := car.Update(s.oracle, peers)
		s.handleOutcome(ctx, i, impact, out)
	}
}

func (s *Session) handleOutcome(ctx context.Context, i int, impact float64, out vehicle.Outcome) {
	car := s.cars[i]
	if out.TrackCollision {
		s.pending = append(s.pending, event.NewTrackCollisionEvent(s, s.tick, i, impact))
		s.metrics.recordCollision(ctx, "track")
		s.logger.Debug(ctx, "track collision", "car", i, "speed", impact, "tick", s.tick)
	}
	if out.Struck != nil {
		s.pending = append(s.pending, event.NewVehicleCollisionEvent(s, s.tick, i, out.Struck.Index, impact))
		s.metrics.recordCollision(ctx, "vehicle")
		s.logger.Debug(ctx, "vehicle collision", "car", i, "other", out.Struck.Index, "speed", impact, "tick", s.tick)
	}
	switch out.Boost {
	case vehicle.BoostEngaged:
		s.pending = append(s.pending, event.NewBoostEvent(event.BoostActivated, s, s.tick, i, car.Boost.Energy))
		s.metrics.boosts.Add(ctx, 1)
	case vehicle.BoostDepleted:
		s.pending = append(s.pending, event.NewBoostEvent(event.BoostDepleted, s, s.tick, i, car.Boost.Energy))
	case vehicle.BoostAbandoned:
		s.logger.Debug(ctx, "boost request abandoned", "car", i, "tick", s.tick)
	}
}

// collectCheckpoints feeds each car's current cell to its lap tracker. Must
// be called with the lock held.
func (s *Session) collectCheckpoints(ctx context.Context, now time.Time) {
	for i, car := range s.cars {
		id, ok := s.oracle.CheckpointAt(car.Position.X, car.Position.Y)
		if !ok {
			continue
		}
		tr := s.trackers[i]
		lapBefore := tr.LapNumber()
		crossing := tr.Collect(id, now)
		if !crossing.Collected {
			continue
		}
		s.pending = append(s.pending, event.NewCheckpointEvent(s, s.tick, i, id, lapBefore))
		s.metrics.checkpoints.Add(ctx, 1)
		if !crossing.LapCompleted {
			continue
		}
		s.pending = append(s.pending, event.NewLapEvent(s, s.tick, i, tr.Laps(), crossing.LapTime))
		s.metrics.recordLap(ctx, crossing.LapTime)
		s.logger.Info(ctx, "lap completed", "car", i, "lap", tr.Laps(), "lap_time", crossing.LapTime, "tick", s.tick)
		if s.cfg.Laps > 0 && tr.Laps() == s.cfg.Laps {
			s.finishers = append(s.finishers, i)
		}
	}
}

// checkFinish ends the race once every car has run the configured laps, the
// tick limit is hit, or the custom condition holds. Must be called with the
// lock held.
func (s *Session) checkFinish() {
	switch {
	case s.cfg.Laps > 0 && len(s.finishers) == len(s.cars):
		s.endLocked("laps")
	case s.cfg.MaxTicks > 0 && s.tick >= s.cfg.MaxTicks:
		s.endLocked("tick limit")
	case s.CustomFinish != nil && s.CustomFinish.Finished(s.snapshot()):
		s.endLocked("custom")
	}
}

// Run steps the session on a ticker at the configured FPS until the race
// ends, a controller fails or ctx is cancelled. Cancellation is not an
// error.
func (s *Session) Run(ctx context.Context) error {
	interval := s.cfg.TickInterval()
	if interval <= 0 {
		return fmt.Errorf("%w: fps must be positive, got %d", config.ErrInvalidConfig, s.cfg.FPS)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return nil
		case <-ticker.C:
			if err := s.Step(ctx); err != nil {
				if errors.Is(err, ErrSessionEnded) {
					return nil
				}
				s.Stop()
				return err
			}
			if s.Status() == StatusEnded {
				return nil
			}
		}
	}
}

// populateSpatialIndex rebuilds the quadtree from current car positions. It
// reports false when a car could not be inserted, in which case callers
// fall back to the full car list.
func (s *Session) populateSpatialIndex() bool {
	if len(s.cars) < 2 {
		return false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range s.cars {
		minX = math.Min(minX, c.Position.X)
		minY = math.Min(minY, c.Position.Y)
		maxX = math.Max(maxX, c.Position.X)
		maxY = math.Max(maxY, c.Position.Y)
	}
	bounds := physics.Rect{
		Center: physics.Vector2D{X: (minX + maxX) / 2, Y: (minY + maxY) / 2},
		Width:  maxX - minX + 2,
		Height: maxY - minY + 2,
	}
	if s.spatialIndex == nil {
		s.spatialIndex = physics.NewQuadTree(bounds, 4)
	} else {
		s.spatialIndex.Clear()
		s.spatialIndex.Boundary = bounds
	}
	for i, c := range s.cars {
		if !s.spatialIndex.Insert(c.Position, i) {
			return false
		}
	}
	return true
}

// nearbyCars returns, in index order, every car whose hitbox could touch
// car's during this tick. Both cars may move up to MaxVelocity before the
// overlap test, so the search area is widened by twice that plus the
// largest hitbox extent of any car.
func (s *Session) nearbyCars(car *vehicle.Car) []*vehicle.Car {
	margin := maxExtent(s.cars) + 2*maxVelocity(s.cars)
	area := physics.Rect{Center: car.Position, Width: 0, Height: 0}.Expand(margin)
	ids := s.spatialIndex.Query(area)
	peers := make([]*vehicle.Car, 0, len(ids))
	for _, id := range ids {
		peers = append(peers, s.cars[id])
	}
	return peers
}

func maxExtent(cars []*vehicle.Car) float64 {
	e := 0.0
	for _, c := range cars {
		p := c.Params
		e = math.Max(e, math.Hypot(p.Width, p.Length)*math.Abs(p.HitboxScale))
	}
	return e
}

func maxVelocity(cars []*vehicle.Car) float64 {
	v := 0.0
	for _, c := range cars {
		v = math.Max(v, math.Abs(c.Params.MaxVelocity))
	}
	return v
}

func (s *Session) drainPending() []event.Event {
	events := s.pending
	s.pending = nil
	return events
}

func (s *Session) publish(events []event.Event) {
	for _, e := range events {
		s.EventBus.Publish(e)
	}
}
