package results

import (
	"context"
	"time"

	"github.com/opd-ai/go-racer/pkg/breaker"
	"github.com/opd-ai/go-racer/pkg/clock"
	"github.com/opd-ai/go-racer/pkg/event"
	"github.com/opd-ai/go-racer/pkg/logging"
)

// Recorder writes lap and session events from a bus into a Store. Write
// failures are logged and never reach the publisher.
type Recorder struct {
	store  *Store
	raceID string
	track  string
	clock  clock.Clock
	logger *logging.Logger
	guard  *breaker.Breaker
	subs   []*event.Subscription
}

// NewRecorder creates a recorder for one race.
func NewRecorder(store *Store, raceID, track string, clk clock.Clock, log *logging.Logger) *Recorder {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Recorder{
		store:  store,
		raceID: raceID,
		track:  track,
		clock:  clk,
		logger: log.With("race_id", raceID),
	}
}

// UseBreaker routes every store write through b. Writes rejected by an
// open circuit are dropped.
func (r *Recorder) UseBreaker(b *breaker.Breaker) {
	r.guard = b
}

func (r *Recorder) write(ctx context.Context, op func() error) error {
	if r.guard == nil {
		return op()
	}
	return r.guard.Execute(ctx, op)
}

// Attach subscribes the recorder to bus.
func (r *Recorder) Attach(bus *event.Bus) {
	r.subs = append(r.subs,
		bus.Subscribe(event.SessionStarted, r.onSessionStarted),
		bus.Subscribe(event.SessionEnded, r.onSessionEnded),
		bus.Subscribe(event.LapCompleted, r.onLapCompleted),
	)
}

// Detach removes every subscription made by Attach.
func (r *Recorder) Detach() {
	for _, sub := range r.subs {
		sub.Cancel()
	}
	r.subs = nil
}

func (r *Recorder) onSessionStarted(e event.Event) {
	se, ok := e.(*event.SessionEvent)
	if !ok {
		return
	}
	ctx := context.Background()
	race := Race{
		ID:        r.raceID,
		Track:     r.track,
		Cars:      se.Cars,
		StartedAt: r.clock.Now(),
	}
	err := r.write(ctx, func() error { return r.store.StartRace(ctx, race) })
	if err != nil {
		r.logger.Error(ctx, "failed to store race start", err)
	}
}

func (r *Recorder) onSessionEnded(e event.Event) {
	ctx := context.Background()
	endedAt := r.clock.Now()
	err := r.write(ctx, func() error { return r.store.FinishRace(ctx, r.raceID, endedAt, e.GetTick()) })
	if err != nil {
		r.logger.Error(ctx, "failed to store race end", err)
	}
}

func (r *Recorder) onLapCompleted(e event.Event) {
	le, ok := e.(*event.LapEvent)
	if !ok {
		return
	}
	ctx := context.Background()
	lap := LapRecord{
		RaceID:     r.raceID,
		Car:        le.Car,
		Lap:        le.Lap,
		LapTime:    le.LapTime,
		Tick:       le.GetTick(),
		RecordedAt: r.clock.Now().UTC().Truncate(time.Millisecond),
	}
	err := r.write(ctx, func() error { return r.store.RecordLap(ctx, lap) })
	if err != nil {
		r.logger.Error(ctx, "failed to store lap", err, "car", le.Car, "lap", le.Lap)
	}
}
