package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/go-racer/pkg/control"
	"github.com/opd-ai/go-racer/pkg/event"
)

// TestSessionRaceCondition reads snapshots while Run drives ticks. Run it
// with -race to catch unsynchronized access.
func TestSessionRaceCondition(t *testing.T) {
	cfg := testConfig()
	cfg.Session.FPS = 1000
	cfg.Session.MaxTicks = 100
	drive := control.ControllerFunc(func(v control.Vehicle, _ control.Observation) error {
		control.Forward(v)
		control.SteerRight(v)
		return nil
	})
	s := newTestSession(t, cfg, newScriptedTrack(), []control.Controller{drive, drive, drive})

	s.EventBus.Subscribe(event.VehicleCollision, func(e event.Event) {
		// Handlers run outside the tick lock and may read state.
		_ = s.State()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s.Status() != StatusEnded {
				_ = s.State()
				_ = s.Observations()
				_ = s.Standings()
				time.Sleep(100 * time.Microsecond)
			}
		}()
	}

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	wg.Wait()

	if s.Tick() != 100 {
		t.Errorf("Tick() = %d, expected 100", s.Tick())
	}
}

// TestSessionRun_StopsOnCancel verifies cancellation ends the race without an
// error.
func TestSessionRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Session.FPS = 1000
	s := newTestSession(t, cfg, newScriptedTrack(), idlers(1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for s.Tick() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, expected nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if s.Status() != StatusEnded {
		t.Errorf("Status() = %v, expected ended", s.Status())
	}
}

// TestSessionRun_ReturnsControllerError verifies Run stops on a failing
// controller.
func TestSessionRun_ReturnsControllerError(t *testing.T) {
	cfg := testConfig()
	cfg.Session.FPS = 1000
	replay := control.NewTupleReplay([][]float64{{1, 0}, {1, 0, 0, 0, 9}})
	s := newTestSession(t, cfg, newScriptedTrack(), []control.Controller{replay})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Run(ctx); err == nil {
		t.Fatal("Run() error = nil, expected the controller error")
	}
	if s.Status() != StatusEnded {
		t.Errorf("Status() = %v, expected ended", s.Status())
	}
}

func TestSessionRun_RejectsZeroFPS(t *testing.T) {
	cfg := testConfig()
	cfg.Session.FPS = 0
	s := newTestSession(t, cfg, newScriptedTrack(), idlers(1))

	if err := s.Run(context.Background()); err == nil {
		t.Error("Run() error = nil, expected invalid config")
	}
}
