package vehicle

import (
	"math"
	"time"

	"github.com/opd-ai/go-racer/pkg/physics"
)

// RecoilSpeed returns the bounce-back speed after hitting the track at
// impact speed. The impact is normalized against maxVelocity and shaped by
// the recoil ease, so slow taps barely bounce while full-speed hits bounce at
// factor times the impact.
func RecoilSpeed(impact, maxVelocity, factor float64) float64 {
	s := 0.0
	if maxVelocity > 0 {
		s = math.Min(1, impact/maxVelocity)
	}
	return impact * physics.Bezier(s, physics.RecoilEaseP1, physics.RecoilEaseP2) * factor
}

// Hitbox returns the car's contact bounds at its current position.
func (c *Car) Hitbox() physics.Rect {
	return physics.Hitbox(c.Position, c.Params.Width, c.Params.Length, c.Heading, c.Params.HitboxScale)
}

// stun zeroes steering and opens a stun window starting at now.
func (c *Car) stun(now time.Time) {
	c.Steering = 0
	c.StunnedUntil = now.Add(c.Params.StunDuration)
}

// resolveTrackCollision bounces the car backward off the track. The blocked
// position is discarded; the car stays where it was. Returns false when the
// car was already stunned.
func (c *Car) resolveTrackCollision(now time.Time) bool {
	if c.stunnedAt(now) {
		return false
	}
	c.Velocity = -RecoilSpeed(math.Abs(c.Velocity), c.Params.MaxVelocity, c.Params.RecoilFactor)
	c.stun(now)
	return true
}

// resolveVehicleCollisions checks c against every peer in order. On the
// first overlap c recoils backward and the struck car is stopped dead; both
// are stunned. A stunned car cannot strike but can still be struck.
func (c *Car) resolveVehicleCollisions(now time.Time, peers []*Car) *Car {
	if c.stunnedAt(now) {
		return nil
	}
	box := c.Hitbox()
	for _, other := range peers {
		if other == nil || other == c {
			continue
		}
		if !box.Overlaps(other.Hitbox()) {
			continue
		}
		c.Velocity = -math.Abs(c.Velocity) * c.Params.RecoilFactor
		c.stun(now)

		other.Velocity = 0
		other.stun(now)
		return other
	}
	return nil
}
