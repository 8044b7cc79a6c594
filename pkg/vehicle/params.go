// pkg/vehicle/params.go
package vehicle

import "time"

// Params holds the tuning of one car. The zero value is not usable; start
// from DefaultParams.
type Params struct {
	MaxVelocity      float64       `json:"maxVelocity" mapstructure:"maxVelocity"`
	AccelerationRate float64       `json:"accelerationRate" mapstructure:"accelerationRate"`
	Friction         float64       `json:"friction" mapstructure:"friction"`
	TurnSpeed        float64       `json:"turnSpeed" mapstructure:"turnSpeed"`
	MinSteering      float64       `json:"minSteering" mapstructure:"minSteering"`
	MaxSteering      float64       `json:"maxSteering" mapstructure:"maxSteering"`
	SteeringDecay    float64       `json:"steeringDecay" mapstructure:"steeringDecay"`
	RevStep          float64       `json:"revStep" mapstructure:"revStep"`
	RevDecayPerMs    float64       `json:"revDecayPerMs" mapstructure:"revDecayPerMs"`
	TurnDeadZone     float64       `json:"turnDeadZone" mapstructure:"turnDeadZone"`
	RecoilFactor     float64       `json:"recoilFactor" mapstructure:"recoilFactor"`
	StunDuration     time.Duration `json:"stunDuration" mapstructure:"stunDuration"`
	Width            float64       `json:"width" mapstructure:"width"`
	Length           float64       `json:"length" mapstructure:"length"`
	HitboxScale      float64       `json:"hitboxScale" mapstructure:"hitboxScale"`
	Boost            BoostParams   `json:"boost" mapstructure:"boost"`
}

// BoostParams tunes the boost state machine.
type BoostParams struct {
	Lag              time.Duration `json:"lag" mapstructure:"lag"`
	Power            float64       `json:"power" mapstructure:"power"`
	ConsumptionPerMs float64       `json:"consumptionPerMs" mapstructure:"consumptionPerMs"`
	RechargePerMs    float64       `json:"rechargePerMs" mapstructure:"rechargePerMs"`
	MinRev           float64       `json:"minRev" mapstructure:"minRev"`
	MaxRev           float64       `json:"maxRev" mapstructure:"maxRev"`
	// Cooldown blocks new requests after boost runs dry. Zero disables it.
	Cooldown time.Duration `json:"cooldown" mapstructure:"cooldown"`
}

// DefaultParams returns the arcade tuning: a 12x18 car topping out at 5
// units per tick.
func DefaultParams() Params {
	return Params{
		MaxVelocity:      5,
		AccelerationRate: 0.2,
		Friction:         0.95,
		TurnSpeed:        3,
		MinSteering:      -100,
		MaxSteering:      100,
		SteeringDecay:    0.9,
		RevStep:          0.02,
		RevDecayPerMs:    0.0008,
		TurnDeadZone:     0.1,
		RecoilFactor:     0.5,
		StunDuration:     time.Second,
		Width:            12,
		Length:           18,
		HitboxScale:      0.8,
		Boost: BoostParams{
			Lag:              600 * time.Millisecond,
			Power:            1.5,
			ConsumptionPerMs: 0.0005,
			RechargePerMs:    0.0002,
			MinRev:           0.35,
			MaxRev:           0.75,
		},
	}
}
