package control

import "github.com/opd-ai/go-racer/pkg/physics"

// Observation is what a controller sees of its car once per tick.
type Observation struct {
	Tick           uint64           `json:"tick"`
	Index          int              `json:"index"`
	Position       physics.Vector2D `json:"position"`
	Heading        float64          `json:"heading"`
	Steering       float64          `json:"steering"`
	Speed          float64          `json:"speed"`
	GridX          int              `json:"gridX"`
	GridY          int              `json:"gridY"`
	LapProgress    float64          `json:"lapProgress"`
	LapNumber      int              `json:"lapNumber"`
	LapTimes       []float64        `json:"lapTimes"`
	CurrentLapTime float64          `json:"currentLapTime"`
	Checkpoints    int              `json:"checkpoints"`
	BoostEnergy    float64          `json:"boostEnergy"`
	BoostActive    bool             `json:"boostActive"`
	Stunned        bool             `json:"stunned"`
}

// Controller decides a car's inputs for one tick. An error stops the session.
type Controller interface {
	Drive(v Vehicle, obs Observation) error
}

// ControllerFunc adapts a function to a Controller.
type ControllerFunc func(v Vehicle, obs Observation) error

// Drive calls f.
func (f ControllerFunc) Drive(v Vehicle, obs Observation) error {
	return f(v, obs)
}
