package control

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Replay plays back a recorded sequence of action indices, one per tick.
// After the last entry it keeps repeating it. An empty replay does nothing.
type Replay struct {
	actions []Action
	cursor  int
}

// NewReplay creates a replay of actions.
func NewReplay(actions []Action) *Replay {
	return &Replay{actions: append([]Action(nil), actions...)}
}

type replayFile struct {
	Actions []Action    `json:"actions"`
	Inputs  [][]float64 `json:"inputs"`
}

// LoadReplay reads a recording from r. It accepts either an object with an
// "actions" list or a bare list of action indices.
func LoadReplay(r io.Reader) (*Replay, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay: %w", err)
	}
	data = bytes.TrimSpace(data)

	var actions []Action
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &actions)
	} else {
		var f replayFile
		err = json.Unmarshal(data, &f)
		actions = f.Actions
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse replay: %w", err)
	}
	return NewReplay(actions), nil
}

// LoadReplayFile reads a recording from path.
func LoadReplayFile(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay: %w", err)
	}
	defer f.Close()
	return LoadReplay(f)
}

// Len returns the number of recorded actions.
func (r *Replay) Len() int {
	return len(r.actions)
}

// Next returns the action for the current tick and advances the cursor.
func (r *Replay) Next() (Action, bool) {
	if len(r.actions) == 0 {
		return ActionNone, false
	}
	a := r.actions[len(r.actions)-1]
	if r.cursor < len(r.actions) {
		a = r.actions[r.cursor]
	}
	r.cursor++
	return a, true
}

// Drive applies the next recorded action to v.
func (r *Replay) Drive(v Vehicle, _ Observation) error {
	if a, ok := r.Next(); ok {
		a.Apply(v)
	}
	return nil
}

// Rewind moves the cursor back to the first action.
func (r *Replay) Rewind() {
	r.cursor = 0
}

// TupleReplay plays back recorded continuous inputs as raw tuples, parsing
// each one on the tick it is used. Like Replay it holds the last entry.
type TupleReplay struct {
	tuples [][]float64
	cursor int
}

// NewTupleReplay creates a replay of raw (throttle, steering[, boost[, brake]])
// tuples.
func NewTupleReplay(tuples [][]float64) *TupleReplay {
	return &TupleReplay{tuples: tuples}
}

// LoadTupleReplay reads an object with an "inputs" list of tuples from r.
func LoadTupleReplay(r io.Reader) (*TupleReplay, error) {
	var f replayFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse input replay: %w", err)
	}
	return NewTupleReplay(f.Inputs), nil
}

// Drive parses and applies the next tuple. A malformed tuple returns an
// error wrapping ErrMalformedInput and leaves v untouched.
func (r *TupleReplay) Drive(v Vehicle, obs Observation) error {
	if len(r.tuples) == 0 {
		return nil
	}
	i := r.cursor
	if i >= len(r.tuples) {
		i = len(r.tuples) - 1
	}
	r.cursor++

	in, err := ParseTuple(r.tuples[i])
	if err != nil {
		return fmt.Errorf("car %d tick %d: %w", obs.Index, obs.Tick, err)
	}
	in.Apply(v)
	return nil
}
