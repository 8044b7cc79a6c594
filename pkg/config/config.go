// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/opd-ai/go-racer/pkg/vehicle"
)

// EnvPrefix prefixes every environment override, e.g. RACER_SESSION_FPS.
const EnvPrefix = "RACER"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid race configuration")

// Controller types understood by the CLI.
const (
	ControllerReplay  = "replay"
	ControllerInputs  = "inputs"
	ControllerForward = "forward"
	ControllerIdle    = "idle"
	ControllerPilot   = "pilot"
)

// RaceConfig contains configuration for a race session
type RaceConfig struct {
	LogLevel    string             `json:"logLevel" mapstructure:"logLevel"`
	Session     SessionConfig      `json:"session" mapstructure:"session"`
	Track       TrackConfig        `json:"track" mapstructure:"track"`
	Vehicle     vehicle.Params     `json:"vehicle" mapstructure:"vehicle"`
	Controllers []ControllerConfig `json:"controllers" mapstructure:"controllers"`
	Results     ResultsConfig      `json:"results" mapstructure:"results"`
	Influx      InfluxConfig       `json:"influx" mapstructure:"influx"`
	Metrics     MetricsConfig      `json:"metrics" mapstructure:"metrics"`
	Health      HealthConfig       `json:"health" mapstructure:"health"`
}

// SessionConfig contains tick timing and race length settings
type SessionConfig struct {
	FPS       int  `json:"fps" mapstructure:"fps"`
	FixedStep bool `json:"fixedStep" mapstructure:"fixedStep"`
	// MaxTicks stops the race after this many ticks. Zero means no limit.
	MaxTicks uint64 `json:"maxTicks" mapstructure:"maxTicks"`
	// Laps ends the race once every car has completed this many laps. Zero
	// means no limit.
	Laps   int     `json:"laps" mapstructure:"laps"`
	CarGap float64 `json:"carGap" mapstructure:"carGap"`
}

// TrackConfig selects the track. Path wins over Template.
type TrackConfig struct {
	Path     string  `json:"path" mapstructure:"path"`
	Template string  `json:"template" mapstructure:"template"`
	CellSize float64 `json:"cellSize" mapstructure:"cellSize"`
}

// ControllerConfig describes who drives one car
type ControllerConfig struct {
	Type string `json:"type" mapstructure:"type"`
	Path string `json:"path" mapstructure:"path"`
}

// ResultsConfig contains lap result store settings
type ResultsConfig struct {
	Enabled bool          `json:"enabled" mapstructure:"enabled"`
	DSN     string        `json:"dsn" mapstructure:"dsn"`
	Breaker BreakerConfig `json:"breaker" mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker guarding result writes
type BreakerConfig struct {
	MaxRequests         uint32        `json:"maxRequests" mapstructure:"maxRequests"`
	Interval            time.Duration `json:"interval" mapstructure:"interval"`
	Timeout             time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxConsecutiveFails uint32        `json:"maxConsecutiveFails" mapstructure:"maxConsecutiveFails"`
}

// InfluxConfig contains observation time-series settings
type InfluxConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Token   string `json:"token" mapstructure:"token"`
	Org     string `json:"org" mapstructure:"org"`
	Bucket  string `json:"bucket" mapstructure:"bucket"`
	// Every samples one observation per car every Every ticks.
	Every int `json:"every" mapstructure:"every"`
}

// MetricsConfig names the OpenTelemetry meter used by the session
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Meter   string `json:"meter" mapstructure:"meter"`
}

// HealthConfig contains health endpoint settings
type HealthConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
	// StallTimeout is how long the session may go without a tick before
	// readiness fails.
	StallTimeout time.Duration `json:"stallTimeout" mapstructure:"stallTimeout"`
	MaxMemoryMB  int64         `json:"maxMemoryMB" mapstructure:"maxMemoryMB"`
}

// DefaultConfig returns a default race configuration
func DefaultConfig() *RaceConfig {
	return &RaceConfig{
		LogLevel: "info",
		Session: SessionConfig{
			FPS:    60,
			CarGap: 20,
		},
		Track: TrackConfig{
			Template: "oval",
			CellSize: 10,
		},
		Vehicle: vehicle.DefaultParams(),
		Controllers: []ControllerConfig{
			{Type: ControllerForward},
		},
		Results: ResultsConfig{
			DSN: "file::memory:?cache=shared",
			Breaker: BreakerConfig{
				MaxRequests:         1,
				Interval:            time.Minute,
				Timeout:             30 * time.Second,
				MaxConsecutiveFails: 5,
			},
		},
		Influx: InfluxConfig{
			URL:    "http://localhost:8086",
			Org:    "racer",
			Bucket: "observations",
			Every:  6,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Meter:   "github.com/opd-ai/go-racer",
		},
		Health: HealthConfig{
			Address:      ":8080",
			StallTimeout: 5 * time.Second,
			MaxMemoryMB:  500,
		},
	}
}

// setDefaults registers every default with v so that environment overrides
// reach keys absent from the file.
func setDefaults(v *viper.Viper, d *RaceConfig) {
	v.SetDefault("logLevel", d.LogLevel)

	v.SetDefault("session.fps", d.Session.FPS)
	v.SetDefault("session.fixedStep", d.Session.FixedStep)
	v.SetDefault("session.maxTicks", d.Session.MaxTicks)
	v.SetDefault("session.laps", d.Session.Laps)
	v.SetDefault("session.carGap", d.Session.CarGap)

	v.SetDefault("track.path", d.Track.Path)
	v.SetDefault("track.template", d.Track.Template)
	v.SetDefault("track.cellSize", d.Track.CellSize)

	p := d.Vehicle
	v.SetDefault("vehicle.maxVelocity", p.MaxVelocity)
	v.SetDefault("vehicle.accelerationRate", p.AccelerationRate)
	v.SetDefault("vehicle.friction", p.Friction)
	v.SetDefault("vehicle.turnSpeed", p.TurnSpeed)
	v.SetDefault("vehicle.minSteering", p.MinSteering)
	v.SetDefault("vehicle.maxSteering", p.MaxSteering)
	v.SetDefault("vehicle.steeringDecay", p.SteeringDecay)
	v.SetDefault("vehicle.revStep", p.RevStep)
	v.SetDefault("vehicle.revDecayPerMs", p.RevDecayPerMs)
	v.SetDefault("vehicle.turnDeadZone", p.TurnDeadZone)
	v.SetDefault("vehicle.recoilFactor", p.RecoilFactor)
	v.SetDefault("vehicle.stunDuration", p.StunDuration)
	v.SetDefault("vehicle.width", p.Width)
	v.SetDefault("vehicle.length", p.Length)
	v.SetDefault("vehicle.hitboxScale", p.HitboxScale)
	v.SetDefault("vehicle.boost.lag", p.Boost.Lag)
	v.SetDefault("vehicle.boost.power", p.Boost.Power)
	v.SetDefault("vehicle.boost.consumptionPerMs", p.Boost.ConsumptionPerMs)
	v.SetDefault("vehicle.boost.rechargePerMs", p.Boost.RechargePerMs)
	v.SetDefault("vehicle.boost.minRev", p.Boost.MinRev)
	v.SetDefault("vehicle.boost.maxRev", p.Boost.MaxRev)
	v.SetDefault("vehicle.boost.cooldown", p.Boost.Cooldown)

	controllers := make([]map[string]any, 0, len(d.Controllers))
	for _, c := range d.Controllers {
		controllers = append(controllers, map[string]any{"type": c.Type, "path": c.Path})
	}
	v.SetDefault("controllers", controllers)

	v.SetDefault("results.enabled", d.Results.Enabled)
	v.SetDefault("results.dsn", d.Results.DSN)
	v.SetDefault("results.breaker.maxRequests", d.Results.Breaker.MaxRequests)
	v.SetDefault("results.breaker.interval", d.Results.Breaker.Interval)
	v.SetDefault("results.breaker.timeout", d.Results.Breaker.Timeout)
	v.SetDefault("results.breaker.maxConsecutiveFails", d.Results.Breaker.MaxConsecutiveFails)

	v.SetDefault("influx.enabled", d.Influx.Enabled)
	v.SetDefault("influx.url", d.Influx.URL)
	v.SetDefault("influx.token", d.Influx.Token)
	v.SetDefault("influx.org", d.Influx.Org)
	v.SetDefault("influx.bucket", d.Influx.Bucket)
	v.SetDefault("influx.every", d.Influx.Every)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.meter", d.Metrics.Meter)

	v.SetDefault("health.enabled", d.Health.Enabled)
	v.SetDefault("health.address", d.Health.Address)
	v.SetDefault("health.stallTimeout", d.Health.StallTimeout)
	v.SetDefault("health.maxMemoryMB", d.Health.MaxMemoryMB)
}

// LoadConfig loads a configuration from a JSON file layered over the
// defaults, then applies RACER_* environment overrides (RACER_SESSION_FPS,
// RACER_VEHICLE_BOOST_LAG, ...). An empty path loads defaults and
// environment only.
func LoadConfig(path string) (*RaceConfig, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg RaceConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *RaceConfig, path string) error {
	if config == nil {
		return fmt.Errorf("failed to marshal config: %w", ErrInvalidConfig)
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the simulation cannot run with
func (c *RaceConfig) Validate() error {
	var problems []string
	p := c.Vehicle

	if p.MaxVelocity <= 0 {
		problems = append(problems, fmt.Sprintf("vehicle.maxVelocity must be positive, got %v", p.MaxVelocity))
	}
	if p.Friction <= 0 || p.Friction > 1 {
		problems = append(problems, fmt.Sprintf("vehicle.friction must be in (0, 1], got %v", p.Friction))
	}
	if p.MinSteering >= p.MaxSteering {
		problems = append(problems, fmt.Sprintf("vehicle steering range [%v, %v] is empty", p.MinSteering, p.MaxSteering))
	}
	if p.Boost.MinRev > p.Boost.MaxRev {
		problems = append(problems, fmt.Sprintf("vehicle boost rev window [%v, %v] is empty", p.Boost.MinRev, p.Boost.MaxRev))
	}
	if p.Boost.Lag < 0 || p.StunDuration < 0 || p.Boost.Cooldown < 0 {
		problems = append(problems, "vehicle durations must not be negative")
	}
	if c.Session.FPS <= 0 {
		problems = append(problems, fmt.Sprintf("session.fps must be positive, got %d", c.Session.FPS))
	}
	if c.Session.Laps < 0 {
		problems = append(problems, fmt.Sprintf("session.laps must not be negative, got %d", c.Session.Laps))
	}
	if c.Track.CellSize <= 0 {
		problems = append(problems, fmt.Sprintf("track.cellSize must be positive, got %v", c.Track.CellSize))
	}
	if c.Track.Path == "" {
		if _, ok := trackTemplates[c.Track.Template]; !ok {
			problems = append(problems, fmt.Sprintf("unknown track template %q", c.Track.Template))
		}
	}
	if len(c.Controllers) == 0 {
		problems = append(problems, "at least one controller is required")
	}
	for i, ctl := range c.Controllers {
		switch ctl.Type {
		case ControllerReplay, ControllerInputs:
			if ctl.Path == "" {
				problems = append(problems, fmt.Sprintf("controllers[%d]: %s controller needs a path", i, ctl.Type))
			}
		case ControllerForward, ControllerIdle, ControllerPilot:
		default:
			problems = append(problems, fmt.Sprintf("controllers[%d]: unknown type %q", i, ctl.Type))
		}
	}
	if c.Results.Enabled && c.Results.Breaker.MaxConsecutiveFails == 0 {
		problems = append(problems, "results.breaker.maxConsecutiveFails must be positive")
	}
	if c.Influx.Enabled && (c.Influx.URL == "" || c.Influx.Bucket == "") {
		problems = append(problems, "influx.url and influx.bucket are required when influx is enabled")
	}
	if c.Influx.Enabled && c.Influx.Every <= 0 {
		problems = append(problems, fmt.Sprintf("influx.every must be positive, got %d", c.Influx.Every))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// TickInterval returns the wall time between ticks.
func (s SessionConfig) TickInterval() time.Duration {
	if s.FPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(s.FPS)
}
