package control

import (
	"math"

	"github.com/opd-ai/go-racer/pkg/physics"
	"github.com/opd-ai/go-racer/pkg/track"
)

// Pilot is a scripted driver that steers toward the centroid of the next
// checkpoint and holds full throttle. It serves as an opponent and as a
// baseline for recorded policies.
type Pilot struct {
	targets map[int]physics.Vector2D
	total   int

	// Tolerance is the heading error in degrees below which the pilot
	// keeps the wheel straight.
	Tolerance float64
	// BrakeAngle is the heading error above which the pilot brakes
	// instead of accelerating. Zero disables braking.
	BrakeAngle float64
	// BoostOnStraight requests a boost once the error is under Tolerance.
	BoostOnStraight bool
}

// NewPilot creates a pilot for a track's checkpoints.
func NewPilot(checkpoints track.Checkpoints, cellSize float64) *Pilot {
	targets := make(map[int]physics.Vector2D, len(checkpoints))
	for id := range checkpoints {
		if c, ok := checkpoints.Centroid(id, cellSize); ok {
			targets[id] = c
		}
	}
	return &Pilot{
		targets:    targets,
		total:      checkpoints.Count(),
		Tolerance:  5,
		BrakeAngle: 120,
	}
}

// Target returns the point the pilot is heading for given obs.
func (p *Pilot) Target(obs Observation) (physics.Vector2D, bool) {
	if p.total == 0 {
		return physics.Vector2D{}, false
	}
	next := obs.Checkpoints%p.total + 1
	target, ok := p.targets[next]
	return target, ok
}

// Drive implements Controller.
func (p *Pilot) Drive(v Vehicle, obs Observation) error {
	target, ok := p.Target(obs)
	if !ok {
		Forward(v)
		return nil
	}
	diff := HeadingError(obs.Heading, obs.Position, target)

	if p.BrakeAngle > 0 && math.Abs(diff) > p.BrakeAngle && obs.Speed > 0 {
		Brake(v)
	} else {
		Forward(v)
	}
	switch {
	case diff > p.Tolerance:
		SteerRight(v)
	case diff < -p.Tolerance:
		SteerLeft(v)
	case p.BoostOnStraight:
		Boost(v)
	}
	return nil
}

// HeadingError returns the signed turn in degrees, within [-180, 180), from
// heading to the bearing of target seen from position. Positive means turn
// right (clockwise).
func HeadingError(heading float64, position, target physics.Vector2D) float64 {
	d := target.Sub(position)
	bearing := math.Atan2(d.X, -d.Y) * 180 / math.Pi
	diff := math.Mod(bearing-heading+180, 360)
	if diff < 0 {
		diff += 360
	}
	return diff - 180
}
