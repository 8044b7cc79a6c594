package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/opd-ai/go-racer/pkg/config"
	"github.com/opd-ai/go-racer/pkg/control"
)

func TestBuildControllers(t *testing.T) {
	cfg := config.DefaultConfig()
	grid, err := cfg.LoadTrack()
	if err != nil {
		t.Fatalf("LoadTrack() error = %v", err)
	}

	dir := t.TempDir()
	actions := filepath.Join(dir, "actions.json")
	inputs := filepath.Join(dir, "inputs.json")
	if err := os.WriteFile(actions, []byte(`[1, 2, 3]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(inputs, []byte(`{"inputs": [[1, 0], [1, 0.3, 1]]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	controllers, err := buildControllers([]config.ControllerConfig{
		{Type: config.ControllerReplay, Path: actions},
		{Type: config.ControllerInputs, Path: inputs},
		{Type: config.ControllerPilot},
		{Type: config.ControllerForward},
		{Type: config.ControllerIdle},
	}, grid)
	if err != nil {
		t.Fatalf("buildControllers() error = %v", err)
	}
	if len(controllers) != 5 {
		t.Fatalf("got %d controllers, expected 5", len(controllers))
	}
	if r, ok := controllers[0].(*control.Replay); !ok || r.Len() != 3 {
		t.Errorf("controllers[0] = %T, expected a 3 action replay", controllers[0])
	}
	if _, ok := controllers[1].(*control.TupleReplay); !ok {
		t.Errorf("controllers[1] = %T, expected *control.TupleReplay", controllers[1])
	}
	if _, ok := controllers[2].(*control.Pilot); !ok {
		t.Errorf("controllers[2] = %T, expected *control.Pilot", controllers[2])
	}
}

func TestBuildControllers_Errors(t *testing.T) {
	cfg := config.DefaultConfig()
	grid, err := cfg.LoadTrack()
	if err != nil {
		t.Fatalf("LoadTrack() error = %v", err)
	}

	if _, err := buildControllers([]config.ControllerConfig{{Type: "neural"}}, grid); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("unknown type error = %v, expected ErrInvalidConfig", err)
	}
	missing := filepath.Join(t.TempDir(), "missing.json")
	if _, err := buildControllers([]config.ControllerConfig{{Type: config.ControllerInputs, Path: missing}}, grid); err == nil {
		t.Error("missing input replay should fail")
	}
	if _, err := buildControllers([]config.ControllerConfig{{Type: config.ControllerReplay, Path: missing}}, grid); err == nil {
		t.Error("missing action replay should fail")
	}
}
