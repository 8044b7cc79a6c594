package main

import (
	"fmt"
	"os"

	"github.com/opd-ai/go-racer/pkg/config"
	"github.com/opd-ai/go-racer/pkg/control"
	"github.com/opd-ai/go-racer/pkg/track"
)

// buildControllers creates one controller per configured car, in order.
func buildControllers(ctls []config.ControllerConfig, oracle track.Oracle) ([]control.Controller, error) {
	controllers := make([]control.Controller, 0, len(ctls))
	for i, ctl := range ctls {
		c, err := buildController(ctl, oracle)
		if err != nil {
			return nil, fmt.Errorf("controller %d: %w", i, err)
		}
		controllers = append(controllers, c)
	}
	return controllers, nil
}

func buildController(ctl config.ControllerConfig, oracle track.Oracle) (control.Controller, error) {
	switch ctl.Type {
	case config.ControllerReplay:
		return control.LoadReplayFile(ctl.Path)
	case config.ControllerInputs:
		f, err := os.Open(ctl.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input replay: %w", err)
		}
		defer f.Close()
		return control.LoadTupleReplay(f)
	case config.ControllerPilot:
		return control.NewPilot(oracle.Checkpoints(), oracle.CellSize()), nil
	case config.ControllerForward:
		return control.ControllerFunc(func(v control.Vehicle, _ control.Observation) error {
			control.Forward(v)
			return nil
		}), nil
	case config.ControllerIdle:
		return control.ControllerFunc(func(control.Vehicle, control.Observation) error {
			return nil
		}), nil
	}
	return nil, fmt.Errorf("%w: unknown controller type %q", config.ErrInvalidConfig, ctl.Type)
}
