package control

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
)

// recorder logs every input it receives.
type recorder struct {
	calls []string
}

func (r *recorder) Accelerate(direction float64) {
	r.calls = append(r.calls, fmt.Sprintf("accelerate(%g)", direction))
}

func (r *recorder) Steer(amount float64) {
	r.calls = append(r.calls, fmt.Sprintf("steer(%g)", amount))
}

func (r *recorder) Brake(strength float64) {
	r.calls = append(r.calls, fmt.Sprintf("brake(%g)", strength))
}

func (r *recorder) RequestBoost() bool {
	r.calls = append(r.calls, "boost")
	return true
}

func TestAction_Apply(t *testing.T) {
	tests := []struct {
		action   Action
		expected []string
	}{
		{ActionNone, nil},
		{ActionForward, []string{"accelerate(1)"}},
		{ActionForwardLeft, []string{"accelerate(1)", "steer(-10)"}},
		{ActionForwardRight, []string{"accelerate(1)", "steer(10)"}},
		{ActionBack, []string{"accelerate(-1)"}},
		{ActionBrake, []string{"brake(0.6)"}},
		{ActionForwardBoost, []string{"accelerate(1)", "boost"}},
		{Action(7), nil},
		{Action(-1), nil},
	}

	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			r := &recorder{}
			tt.action.Apply(r)
			if !reflect.DeepEqual(r.calls, tt.expected) {
				t.Errorf("Apply() calls = %v, expected %v", r.calls, tt.expected)
			}
		})
	}
}

func TestAction_String(t *testing.T) {
	if got := ActionForwardBoost.String(); got != "forward_boost" {
		t.Errorf("String() = %q, expected forward_boost", got)
	}
	if got := Action(42).String(); got != "action(42)" {
		t.Errorf("String() = %q, expected action(42)", got)
	}
}

func TestParseTuple(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected Input
		wantErr  bool
	}{
		{"pair", []float64{1, 0.3}, Input{Throttle: 1, Steering: 0.3}, false},
		{"with_boost", []float64{0.5, -0.2, 1}, Input{Throttle: 0.5, Steering: -0.2, Boost: true}, false},
		{"with_brake", []float64{0, 0, 0, 0.4}, Input{Brake: 0.4}, false},
		{"clamped", []float64{3, -2, 0, 7}, Input{Throttle: 1, Steering: -0.6, Brake: 1}, false},
		{"empty", nil, Input{}, true},
		{"single", []float64{1}, Input{}, true},
		{"too_many", []float64{1, 0, 0, 0, 0}, Input{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTuple(tt.values)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedInput) {
					t.Fatalf("ParseTuple(%v) error = %v, expected ErrMalformedInput", tt.values, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTuple(%v) unexpected error: %v", tt.values, err)
			}
			if got != tt.expected {
				t.Errorf("ParseTuple(%v) = %+v, expected %+v", tt.values, got, tt.expected)
			}
		})
	}
}

func TestParseTuple_ErrorNamesArity(t *testing.T) {
	_, err := ParseTuple([]float64{1, 2, 3, 4, 5})
	if err == nil || !strings.Contains(err.Error(), "got 5") {
		t.Errorf("error = %v, expected it to mention the arity", err)
	}
}

func TestInput_Apply(t *testing.T) {
	tests := []struct {
		name     string
		input    Input
		expected []string
	}{
		{"idle", Input{}, nil},
		{"full_throttle", Input{Throttle: 1}, []string{"accelerate(1)"}},
		{"reverse", Input{Throttle: -0.5}, []string{"accelerate(-0.5)"}},
		{"full_right", Input{Steering: 0.6}, []string{"steer(10)"}},
		{"over_left_clamped", Input{Steering: -5}, []string{"steer(-10)"}},
		{"everything", Input{Throttle: 1, Steering: 0.3, Boost: true, Brake: 0.2},
			[]string{"accelerate(1)", "steer(5)", "boost", "brake(0.2)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			tt.input.Apply(r)
			if len(r.calls) != len(tt.expected) {
				t.Fatalf("Apply() calls = %v, expected %v", r.calls, tt.expected)
			}
			for i := range r.calls {
				if r.calls[i] != tt.expected[i] {
					t.Errorf("call %d = %s, expected %s", i, r.calls[i], tt.expected[i])
				}
			}
		})
	}
}

func TestInput_ClampedSteeringBound(t *testing.T) {
	in := Input{Steering: 0.61}.Clamped()
	if math.Abs(in.Steering-MaxSteeringInput) > 1e-12 {
		t.Errorf("Steering = %v, expected %v", in.Steering, MaxSteeringInput)
	}
}

func TestReplay_HoldsLastAction(t *testing.T) {
	r := NewReplay([]Action{ActionForward, ActionForwardLeft, ActionBrake})

	expected := []Action{ActionForward, ActionForwardLeft, ActionBrake, ActionBrake, ActionBrake}
	for i, want := range expected {
		got, ok := r.Next()
		if !ok || got != want {
			t.Errorf("tick %d: Next() = %v, %v, expected %v, true", i, got, ok, want)
		}
	}

	r.Rewind()
	if got, _ := r.Next(); got != ActionForward {
		t.Errorf("Next() after Rewind = %v, expected forward", got)
	}
}

func TestReplay_EmptyDoesNothing(t *testing.T) {
	r := NewReplay(nil)
	rec := &recorder{}

	if err := r.Drive(rec, Observation{}); err != nil {
		t.Fatalf("Drive() unexpected error: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("empty replay drove the car: %v", rec.calls)
	}
}

func TestLoadReplay(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
		wantErr  bool
	}{
		{"object", `{"actions": [1, 1, 2, 6]}`, 4, false},
		{"bare_list", ` [1, 3, 5] `, 3, false},
		{"empty_object", `{}`, 0, false},
		{"garbage", `actions`, 0, true},
		{"wrong_type", `{"actions": "fast"}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := LoadReplay(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Error("LoadReplay() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadReplay() unexpected error: %v", err)
			}
			if r.Len() != tt.expected {
				t.Errorf("Len() = %d, expected %d", r.Len(), tt.expected)
			}
		})
	}
}

func TestLoadReplayFile_Missing(t *testing.T) {
	if _, err := LoadReplayFile(t.TempDir() + "/missing.json"); err == nil {
		t.Error("LoadReplayFile() expected error for a missing file")
	}
}

func TestTupleReplay_Drive(t *testing.T) {
	r, err := LoadTupleReplay(strings.NewReader(`{"inputs": [[1, 0], [1, 0.6, 1], [0.5]]}`))
	if err != nil {
		t.Fatalf("LoadTupleReplay() unexpected error: %v", err)
	}
	rec := &recorder{}

	if err := r.Drive(rec, Observation{}); err != nil {
		t.Fatalf("tick 0: unexpected error: %v", err)
	}
	if err := r.Drive(rec, Observation{}); err != nil {
		t.Fatalf("tick 1: unexpected error: %v", err)
	}
	expected := []string{"accelerate(1)", "accelerate(1)", "steer(10)", "boost"}
	if !reflect.DeepEqual(rec.calls, expected) {
		t.Errorf("calls = %v, expected %v", rec.calls, expected)
	}

	err = r.Drive(rec, Observation{Index: 2, Tick: 3})
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("Drive() error = %v, expected ErrMalformedInput", err)
	}
	if !strings.Contains(err.Error(), "car 2 tick 3") {
		t.Errorf("error %q does not name the car and tick", err)
	}
	if len(rec.calls) != len(expected) {
		t.Errorf("malformed tuple drove the car: %v", rec.calls)
	}
}

func TestControllerFunc(t *testing.T) {
	called := false
	var c Controller = ControllerFunc(func(v Vehicle, obs Observation) error {
		called = obs.Index == 3
		Forward(v)
		return nil
	})

	rec := &recorder{}
	if err := c.Drive(rec, Observation{Index: 3}); err != nil {
		t.Fatalf("Drive() unexpected error: %v", err)
	}
	if !called || len(rec.calls) != 1 {
		t.Errorf("ControllerFunc did not run: called=%v calls=%v", called, rec.calls)
	}
}
