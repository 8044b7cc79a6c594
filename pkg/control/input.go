package control

import (
	"errors"
	"fmt"

	"github.com/opd-ai/go-racer/pkg/physics"
)

// ErrMalformedInput is returned for a control tuple of the wrong arity.
var ErrMalformedInput = errors.New("malformed control input")

// MaxSteeringInput bounds the continuous steering input.
const MaxSteeringInput = 0.6

// Input is a continuous control decision. Throttle is in [-1, 1], Steering in
// [-0.6, 0.6] and Brake in [0, 1]; Clamped enforces the ranges.
type Input struct {
	Throttle float64 `json:"throttle"`
	Steering float64 `json:"steering"`
	Boost    bool    `json:"boost"`
	Brake    float64 `json:"brake"`
}

// Clamped returns in with every field inside its range.
func (in Input) Clamped() Input {
	return Input{
		Throttle: physics.Clamp(in.Throttle, -1, 1),
		Steering: physics.Clamp(in.Steering, -MaxSteeringInput, MaxSteeringInput),
		Boost:    in.Boost,
		Brake:    physics.Clamp01(in.Brake),
	}
}

// Apply drives v with the clamped input. Full steering input turns the wheel
// by one discrete step.
func (in Input) Apply(v Vehicle) {
	in = in.Clamped()
	if in.Throttle != 0 {
		v.Accelerate(in.Throttle)
	}
	if in.Steering != 0 {
		v.Steer(in.Steering / MaxSteeringInput * SteerStep)
	}
	if in.Boost {
		v.RequestBoost()
	}
	if in.Brake > 0 {
		v.Brake(in.Brake)
	}
}

// ParseTuple builds an Input from (throttle, steering[, boost[, brake]]).
// A non-zero third value requests boost.
func ParseTuple(values []float64) (Input, error) {
	if len(values) < 2 || len(values) > 4 {
		return Input{}, fmt.Errorf("%w: expected 2 to 4 values, got %d", ErrMalformedInput, len(values))
	}
	in := Input{Throttle: values[0], Steering: values[1]}
	if len(values) > 2 {
		in.Boost = values[2] != 0
	}
	if len(values) > 3 {
		in.Brake = values[3]
	}
	return in.Clamped(), nil
}
