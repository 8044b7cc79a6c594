// pkg/vehicle/car.go
package vehicle

import (
	"math"
	"time"

	"github.com/opd-ai/go-racer/pkg/clock"
	"github.com/opd-ai/go-racer/pkg/physics"
	"github.com/opd-ai/go-racer/pkg/track"
)

// Car is one vehicle's kinematic state. Velocity is signed speed along the
// heading, in track units per tick. Heading is in degrees, 0 pointing up.
type Car struct {
	Index    int
	Position physics.Vector2D
	Heading  float64
	Steering float64
	Velocity float64
	Rev      float64
	Params   Params
	Boost    Boost

	// StunnedUntil is the end of the current collision stun. The zero value
	// means the car has never been stunned.
	StunnedUntil time.Time

	accelerating bool
	lastUpdate   time.Time
	clock        clock.Clock
}

// Outcome describes what happened to a car during one Update.
type Outcome struct {
	DeltaMs        float64
	TrackCollision bool
	Boost          BoostTransition

	// Struck is the car this one ran into, nil if none.
	Struck *Car
}

// NewCar creates a car at rest at position with a full boost tank.
func NewCar(index int, position physics.Vector2D, params Params, clk clock.Clock) *Car {
	if clk == nil {
		clk = clock.System{}
	}
	return &Car{
		Index:      index,
		Position:   position,
		Params:     params,
		Boost:      Boost{Energy: 1},
		lastUpdate: clk.Now(),
		clock:      clk,
	}
}

// Stunned reports whether the car is inside a collision stun window.
func (c *Car) Stunned() bool {
	return c.stunnedAt(c.clock.Now())
}

func (c *Car) stunnedAt(now time.Time) bool {
	return now.Before(c.StunnedUntil)
}

// Accelerating reports whether the last throttle input was forward. The flag
// survives ticks without input, so rev only decays after a reverse call.
func (c *Car) Accelerating() bool {
	return c.accelerating
}

// Accelerate applies one tick of throttle. Positive direction drives forward
// along the rev-eased throttle curve; anything else reverses linearly. Boost
// scales both. Ignored while stunned.
func (c *Car) Accelerate(direction float64) {
	now := c.clock.Now()
	if c.stunnedAt(now) {
		return
	}

	mult := c.Boost.Multiplier(now, c.Params.Boost)
	if direction > 0 {
		ease := physics.Bezier(c.Rev, physics.ThrottleEaseP1, physics.ThrottleEaseP2)
		c.Velocity += direction * c.Params.AccelerationRate * ease * mult
	} else {
		c.Velocity += direction * c.Params.AccelerationRate * mult
	}
	c.Velocity = physics.Clamp(c.Velocity, -c.Params.MaxVelocity, c.Params.MaxVelocity)

	if direction > 0 {
		c.Rev = math.Min(1, c.Rev+c.Params.RevStep)
		c.accelerating = true
	} else {
		c.accelerating = false
	}
}

// Steer turns the wheel by amount degrees. Ignored while stunned.
func (c *Car) Steer(amount float64) {
	if c.Stunned() {
		return
	}
	c.Steering = physics.Clamp(c.Steering+amount, c.Params.MinSteering, c.Params.MaxSteering)
}

// Brake sheds strength (clamped to [0, 1]) of the current speed. Ignored
// while stunned.
func (c *Car) Brake(strength float64) {
	if c.Stunned() {
		return
	}
	c.Velocity *= 1 - physics.Clamp01(strength)
}

// RequestBoost arms a boost if the engine is inside the rev window. It
// reports whether the request was accepted.
func (c *Car) RequestBoost() bool {
	now := c.clock.Now()
	if c.stunnedAt(now) {
		return false
	}
	return c.Boost.Request(now, c.Rev, c.Params.Boost)
}

// Update integrates one tick: heading, steering and rev decay, movement with
// track and car collisions, friction, then boost bookkeeping. peers must be
// ordered by Index; it may include c itself.
func (c *Car) Update(oracle track.Oracle, peers []*Car) Outcome {
	now := c.clock.Now()
	dt := now.Sub(c.lastUpdate)
	if dt < 0 {
		dt = 0
	}
	c.lastUpdate = now
	out := Outcome{DeltaMs: clock.Millis(dt)}

	p := c.Params
	if math.Abs(c.Velocity) > p.TurnDeadZone && p.MaxVelocity > 0 {
		c.Heading += c.Steering / 100 * p.TurnSpeed * (c.Velocity / p.MaxVelocity)
	}

	c.Steering *= p.SteeringDecay

	if !c.accelerating {
		c.Rev = math.Max(0, c.Rev-out.DeltaMs*p.RevDecayPerMs)
	}

	next := c.Position.Add(physics.HeadingVector(c.Heading, c.Velocity))
	if oracle == nil || !oracle.Blocked(next.X, next.Y) {
		c.Position = next
	} else {
		out.TrackCollision = c.resolveTrackCollision(now)
	}

	out.Struck = c.resolveVehicleCollisions(now, peers)

	c.Velocity *= p.Friction

	out.Boost = c.Boost.Tick(now, out.DeltaMs, p.Boost)

	return out
}

// Reset puts the car back at rest at position and clears any stun.
func (c *Car) Reset(position physics.Vector2D) {
	c.Position = position
	c.Velocity = 0
	c.Heading = 0
	c.Steering = 0
	c.Rev = 0
	c.accelerating = false
	c.StunnedUntil = time.Time{}
	c.Boost.RequestedAt = time.Time{}
	c.Boost.Active = false
	c.lastUpdate = c.clock.Now()
}
