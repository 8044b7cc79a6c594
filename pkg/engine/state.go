// pkg/engine/state.go
package engine

import (
	"fmt"
	"time"

	"github.com/opd-ai/go-racer/pkg/clock"
	"github.com/opd-ai/go-racer/pkg/physics"
)

// RaceState is a point-in-time snapshot of a session.
type RaceState struct {
	Tick      uint64
	Status    Status
	Elapsed   time.Duration
	Cars      []CarState
	Finishers []int // car indices in finishing order
}

// CarState is a snapshot of one car and its lap progress.
type CarState struct {
	Index       int
	Position    physics.Vector2D
	Heading     float64
	Velocity    float64
	Lap         int // 1-based lap in progress
	Laps        int // completed laps
	Checkpoints int
	Total       int
	Progress    float64
	BestLap     float64 // seconds, 0 when no lap is complete
	Finished    bool
}

// State returns a snapshot of the race.
func (s *Session) State() *RaceState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot()
}

// snapshot must be called with the lock held.
func (s *Session) snapshot() *RaceState {
	state := &RaceState{
		Tick:      s.tick,
		Status:    s.status,
		Cars:      make([]CarState, len(s.cars)),
		Finishers: append([]int(nil), s.finishers...),
	}
	switch s.status {
	case StatusActive:
		state.Elapsed = s.clock.Now().Sub(s.startTime)
	case StatusEnded:
		if !s.startTime.IsZero() {
			state.Elapsed = s.endTime.Sub(s.startTime)
		}
	}

	finished := make(map[int]bool, len(s.finishers))
	for _, i := range s.finishers {
		finished[i] = true
	}
	for i, car := range s.cars {
		tr := s.trackers[i]
		best, _ := tr.BestLap()
		state.Cars[i] = CarState{
			Index:       i,
			Position:    car.Position,
			Heading:     car.Heading,
			Velocity:    car.Velocity,
			Lap:         tr.LapNumber(),
			Laps:        tr.Laps(),
			Checkpoints: len(tr.Collected()),
			Total:       tr.Total(),
			Progress:    tr.Progress(car.Position),
			BestLap:     best,
			Finished:    finished[i],
		}
	}
	return state
}

// Observations returns the observations published by the latest tick, or
// the spawn observations before the first one.
func (s *Session) Observations() []Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneObservations(s.obs)
}

// Standings formats one HUD line per car, e.g. "Car 1: Lap 2, CP 3/9".
func (s *Session) Standings() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]string, len(s.cars))
	for i, tr := range s.trackers {
		lines[i] = fmt.Sprintf("Car %d: Lap %d, CP %d/%d", i+1, tr.LapNumber(), len(tr.Collected()), tr.Total())
	}
	return lines
}

// Status returns the lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Tick returns the number of completed ticks.
func (s *Session) Tick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// LastTick returns the clock time of the latest tick, or the start time if
// none has run. The zero time means the race has not started.
func (s *Session) LastTick() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTick
}

// CarCount returns the number of cars in the race.
func (s *Session) CarCount() int {
	return len(s.cars)
}

// Clock returns the session's time source.
func (s *Session) Clock() clock.Clock {
	return s.clock
}

// buildObservations must be called with the lock held.
func (s *Session) buildObservations(now time.Time) []Observation {
	cellSize := s.oracle.CellSize()
	obs := make([]Observation, len(s.cars))
	for i, car := range s.cars {
		tr := s.trackers[i]
		gx, gy := car.Position.Cell(cellSize)
		obs[i] = Observation{
			Tick:           s.tick,
			Index:          i,
			Position:       car.Position,
			Heading:        car.Heading,
			Steering:       car.Steering,
			Speed:          car.Velocity,
			GridX:          gx,
			GridY:          gy,
			LapProgress:    tr.Progress(car.Position),
			LapNumber:      tr.LapNumber(),
			LapTimes:       tr.LapTimes(),
			CurrentLapTime: tr.CurrentLapTime(now),
			Checkpoints:    len(tr.Collected()),
			BoostEnergy:    car.Boost.Energy,
			BoostActive:    car.Boost.Active,
			Stunned:        now.Before(car.StunnedUntil),
		}
	}
	return obs
}

func cloneObservations(obs []Observation) []Observation {
	out := make([]Observation, len(obs))
	for i, o := range obs {
		o.LapTimes = append([]float64(nil), o.LapTimes...)
		out[i] = o
	}
	return out
}
