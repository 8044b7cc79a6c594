package vehicle

import (
	"math"
	"testing"
	"time"

	"github.com/opd-ai/go-racer/pkg/clock"
	"github.com/opd-ai/go-racer/pkg/physics"
)

func TestRecoilSpeed(t *testing.T) {
	tests := []struct {
		name     string
		impact   float64
		maxV     float64
		factor   float64
		expected float64
	}{
		{"full_speed", 5, 5, 0.5, 2.5},
		{"half_speed", 2.5, 5, 0.5, 0.625},
		{"stationary", 0, 5, 0.5, 0},
		{"over_max_clamps_ease", 10, 5, 0.5, 5},
		{"no_max_velocity", 5, 0, 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecoilSpeed(tt.impact, tt.maxV, tt.factor)
			if math.Abs(got-tt.expected) > epsilon {
				t.Errorf("RecoilSpeed(%v, %v, %v) = %v, expected %v", tt.impact, tt.maxV, tt.factor, got, tt.expected)
			}
		})
	}
}

func TestCar_ResolveTrackCollision(t *testing.T) {
	car, clk := newTestCar(t)
	car.Velocity = 5
	car.Steering = 30

	if !car.resolveTrackCollision(clk.Now()) {
		t.Fatal("resolveTrackCollision() = false, expected a collision")
	}
	if car.Velocity != -2.5 {
		t.Errorf("Velocity = %v, expected -2.5", car.Velocity)
	}
	if car.Steering != 0 {
		t.Errorf("Steering = %v, expected 0", car.Steering)
	}
	if !car.StunnedUntil.Equal(clk.Now().Add(time.Second)) {
		t.Errorf("StunnedUntil = %v, expected one second out", car.StunnedUntil)
	}
}

func TestCar_TrackCollisionDuringUpdate(t *testing.T) {
	car, clk := newTestCar(t)
	car.Velocity = 5
	start := car.Position

	clk.Advance(16 * time.Millisecond)
	out := car.Update(wallTrack, nil)

	if !out.TrackCollision {
		t.Fatal("TrackCollision = false, expected true")
	}
	if car.Position != start {
		t.Errorf("Position = %v, expected to stay at %v", car.Position, start)
	}
	if math.Abs(car.Velocity+2.375) > epsilon {
		t.Errorf("Velocity = %v, expected recoil then friction to give -2.375", car.Velocity)
	}
	if !car.Stunned() {
		t.Error("car should be stunned after hitting the track")
	}

	// No second bounce inside the stun window.
	clk.Advance(500 * time.Millisecond)
	out = car.Update(wallTrack, nil)
	if out.TrackCollision {
		t.Error("TrackCollision = true inside the stun window")
	}
	if math.Abs(car.Velocity+2.375*0.95) > epsilon {
		t.Errorf("Velocity = %v, expected only friction while stunned", car.Velocity)
	}

	clk.Advance(500 * time.Millisecond)
	out = car.Update(wallTrack, nil)
	if !out.TrackCollision {
		t.Error("TrackCollision = false once the stun expired")
	}
}

// pair returns two cars whose hitboxes overlap, a directly below b.
func pair(t *testing.T) (*Car, *Car, *clock.Manual) {
	t.Helper()
	a, clk := newTestCar(t)
	b := NewCar(1, physics.Vector2D{X: 100, Y: 90}, DefaultParams(), clk)
	return a, b, clk
}

func TestCar_VehicleCollisionIsAsymmetric(t *testing.T) {
	a, b, clk := pair(t)
	a.Velocity = 4
	a.Steering = 20
	b.Velocity = 3

	clk.Advance(16 * time.Millisecond)
	out := a.Update(nil, []*Car{a, b})

	if out.Struck != b {
		t.Fatalf("Struck = %v, expected car 1", out.Struck)
	}
	if math.Abs(a.Velocity+1.9) > epsilon {
		t.Errorf("striker Velocity = %v, expected -4 * 0.5 * 0.95", a.Velocity)
	}
	if a.Steering != 0 || !a.Stunned() {
		t.Errorf("striker not stunned: steering=%v stunned=%v", a.Steering, a.Stunned())
	}
	if b.Velocity != 0 {
		t.Errorf("struck Velocity = %v, expected 0", b.Velocity)
	}
	if !b.Stunned() {
		t.Error("struck car should be stunned")
	}
}

func TestCar_StunnedCarCannotStrike(t *testing.T) {
	a, b, clk := pair(t)
	a.StunnedUntil = a.clock.Now().Add(time.Second)
	b.Velocity = 3

	clk.Advance(16 * time.Millisecond)
	out := a.Update(nil, []*Car{a, b})

	if out.Struck != nil {
		t.Errorf("Struck = %v, expected nil for a stunned car", out.Struck)
	}
	if b.Velocity != 3 || b.Stunned() {
		t.Errorf("struck car changed: velocity=%v stunned=%v", b.Velocity, b.Stunned())
	}
}

func TestCar_StunnedCarCanBeStruck(t *testing.T) {
	a, b, clk := pair(t)
	b.StunnedUntil = b.clock.Now().Add(100 * time.Millisecond)
	b.Velocity = 2

	clk.Advance(16 * time.Millisecond)
	out := a.Update(nil, []*Car{a, b})

	if out.Struck != b {
		t.Fatalf("Struck = %v, expected car 1", out.Struck)
	}
	if b.Velocity != 0 {
		t.Errorf("struck Velocity = %v, expected 0", b.Velocity)
	}
	if !b.StunnedUntil.Equal(b.clock.Now().Add(time.Second)) {
		t.Errorf("StunnedUntil = %v, expected the stun window to restart", b.StunnedUntil)
	}
}

func TestCar_VehicleCollisionStopsAtFirstPeer(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	params := DefaultParams()
	a := NewCar(0, physics.Vector2D{X: 100, Y: 100}, params, clk)
	b := NewCar(1, physics.Vector2D{X: 105, Y: 100}, params, clk)
	c := NewCar(2, physics.Vector2D{X: 95, Y: 100}, params, clk)
	c.Velocity = 1

	clk.Advance(16 * time.Millisecond)
	out := a.Update(nil, []*Car{nil, a, b, c})

	if out.Struck != b {
		t.Fatalf("Struck = %v, expected the lowest-index overlapping car", out.Struck)
	}
	if c.Stunned() || c.Velocity != 1 {
		t.Errorf("second overlapping car was touched: velocity=%v stunned=%v", c.Velocity, c.Stunned())
	}
}

func TestCar_NoCollisionWhenApart(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	params := DefaultParams()
	a := NewCar(0, physics.Vector2D{X: 100, Y: 100}, params, clk)
	b := NewCar(1, physics.Vector2D{X: 200, Y: 100}, params, clk)

	clk.Advance(16 * time.Millisecond)
	if out := a.Update(nil, []*Car{a, b}); out.Struck != nil {
		t.Errorf("Struck = %v, expected nil", out.Struck)
	}
}

func TestCar_Hitbox(t *testing.T) {
	car, _ := newTestCar(t)

	box := car.Hitbox()
	if math.Abs(box.Width-9.6) > epsilon || math.Abs(box.Height-14.4) > epsilon {
		t.Errorf("Hitbox() = %vx%v, expected 9.6x14.4", box.Width, box.Height)
	}

	car.Heading = 90
	box = car.Hitbox()
	if math.Abs(box.Width-14.4) > epsilon || math.Abs(box.Height-9.6) > epsilon {
		t.Errorf("rotated Hitbox() = %vx%v, expected 14.4x9.6", box.Width, box.Height)
	}
}
