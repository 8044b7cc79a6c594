// Package track defines the boundary between the simulation and the track it
// runs on. The simulation only asks two questions of a track: is this point
// blocked, and which checkpoint (if any) covers it.
package track

import (
	"errors"
	"fmt"
	"sort"

	"github.com/opd-ai/go-racer/pkg/physics"
)

var (
	// ErrNoCheckpoints is returned for a track without any checkpoint.
	ErrNoCheckpoints = errors.New("track has no checkpoints")
	// ErrInvalidTrack is returned when a track layout cannot be used.
	ErrInvalidTrack = errors.New("invalid track")
)

// Oracle is the collision and checkpoint lookup a race runs against.
type Oracle interface {
	// Blocked reports whether a car centered at (x, y) would hit the track.
	Blocked(x, y float64) bool
	// CheckpointAt returns the checkpoint id covering (x, y).
	CheckpointAt(x, y float64) (int, bool)
	// Checkpoints returns every checkpoint keyed by id.
	Checkpoints() Checkpoints
	// StartPosition returns the start line position for vehicle index 0.
	StartPosition() physics.Vector2D
	// CellSize returns the edge length of one grid cell in track units.
	CellSize() float64
}

// Cell is a grid coordinate.
type Cell struct {
	X int
	Y int
}

// Checkpoints maps checkpoint ids (1..K) to the cells that make them up.
type Checkpoints map[int][]Cell

// Count returns K, the number of checkpoints per lap.
func (c Checkpoints) Count() int {
	return len(c)
}

// Centroid returns the average center of the checkpoint's cells. It returns
// false for an unknown id or a checkpoint with no cells.
func (c Checkpoints) Centroid(id int, cellSize float64) (physics.Vector2D, bool) {
	cells := c[id]
	points := make([]physics.Vector2D, 0, len(cells))
	for _, cell := range cells {
		points = append(points, physics.CellCenter(cell.X, cell.Y, cellSize))
	}
	return physics.Centroid(points)
}

// Validate checks that ids run contiguously from 1 to K and that every
// checkpoint has at least one cell.
func (c Checkpoints) Validate() error {
	if len(c) == 0 {
		return ErrNoCheckpoints
	}
	ids := make([]int, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for i, id := range ids {
		if id != i+1 {
			return fmt.Errorf("%w: checkpoint ids must run 1..%d, found %d", ErrInvalidTrack, len(c), id)
		}
		if len(c[id]) == 0 {
			return fmt.Errorf("%w: checkpoint %d has no cells", ErrInvalidTrack, id)
		}
	}
	return nil
}
