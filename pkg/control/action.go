// Package control maps controller decisions onto a vehicle. It covers the
// discrete keyboard-style actions, the continuous (throttle, steering, boost,
// brake) input and controllers that replay recorded decisions.
package control

import "fmt"

// SteerStep is the steering change in degrees of one discrete steer action.
const SteerStep = 10.0

// Vehicle is the set of inputs a controller can drive.
type Vehicle interface {
	Accelerate(direction float64)
	Steer(amount float64)
	Brake(strength float64)
	RequestBoost() bool
}

// DefaultBrakeStrength is the share of speed one discrete brake sheds.
const DefaultBrakeStrength = 0.6

// Forward applies full forward throttle.
func Forward(v Vehicle) { v.Accelerate(1) }

// Back applies full reverse throttle.
func Back(v Vehicle) { v.Accelerate(-1) }

// SteerLeft turns the wheel one step left.
func SteerLeft(v Vehicle) { v.Steer(-SteerStep) }

// SteerRight turns the wheel one step right.
func SteerRight(v Vehicle) { v.Steer(SteerStep) }

// Brake applies the default brake.
func Brake(v Vehicle) { v.Brake(DefaultBrakeStrength) }

// Boost requests a boost.
func Boost(v Vehicle) { v.RequestBoost() }

// Action is a policy action index. Recorded policies emit these.
type Action int

const (
	ActionNone Action = iota
	ActionForward
	ActionForwardLeft
	ActionForwardRight
	ActionBack
	ActionBrake
	ActionForwardBoost
)

var actionNames = [...]string{
	ActionNone:         "none",
	ActionForward:      "forward",
	ActionForwardLeft:  "forward_left",
	ActionForwardRight: "forward_right",
	ActionBack:         "back",
	ActionBrake:        "brake",
	ActionForwardBoost: "forward_boost",
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a >= ActionNone && int(a) < len(actionNames)
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// Apply drives v with a. Unknown actions do nothing.
func (a Action) Apply(v Vehicle) {
	switch a {
	case ActionForward:
		Forward(v)
	case ActionForwardLeft:
		Forward(v)
		SteerLeft(v)
	case ActionForwardRight:
		Forward(v)
		SteerRight(v)
	case ActionBack:
		Back(v)
	case ActionBrake:
		Brake(v)
	case ActionForwardBoost:
		Forward(v)
		Boost(v)
	}
}
