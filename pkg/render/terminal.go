// Package render draws a race as ASCII frames: the track grid with its walls
// and checkpoints, and one letter per car.
package render

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/opd-ai/go-racer/pkg/control"
	"github.com/opd-ai/go-racer/pkg/physics"
	"github.com/opd-ai/go-racer/pkg/track"
)

// Layout is a track that knows its extent in cells.
type Layout interface {
	track.Oracle
	Size() (int, int)
}

// TerminalRenderer renders frames into an in-memory buffer and writes them
// to an io.Writer.
type TerminalRenderer struct {
	layout   Layout
	width    int
	height   int
	cellSize float64
	track    [][]rune
	buffer   [][]rune

	out   io.Writer
	every uint64
	// ClearScreen prefixes each presented frame with an ANSI clear.
	ClearScreen bool

	mu sync.Mutex
}

// NewTerminalRenderer creates a renderer for layout that presents every
// every ticks to out when used as an observation sink.
func NewTerminalRenderer(layout Layout, out io.Writer, every int) *TerminalRenderer {
	width, height := layout.Size()
	if every < 1 {
		every = 1
	}
	r := &TerminalRenderer{
		layout:   layout,
		width:    width,
		height:   height,
		cellSize: layout.CellSize(),
		out:      out,
		every:    uint64(every),
	}
	r.track = r.drawTrack()
	r.buffer = make([][]rune, height)
	for y := range r.buffer {
		r.buffer[y] = make([]rune, width)
	}
	r.Clear()
	return r
}

func (r *TerminalRenderer) drawTrack() [][]rune {
	rows := make([][]rune, r.height)
	start := r.worldToScreenCell(r.layout.StartPosition())
	for y := range rows {
		rows[y] = make([]rune, r.width)
		for x := range rows[y] {
			center := physics.CellCenter(x, y, r.cellSize)
			switch id, ok := r.layout.CheckpointAt(center.X, center.Y); {
			case r.layout.Blocked(center.X, center.Y):
				rows[y][x] = track.WallSymbol
			case ok:
				rows[y][x] = checkpointSymbol(id)
			case (track.Cell{X: x, Y: y}) == start:
				rows[y][x] = track.StartSymbol
			default:
				rows[y][x] = track.RoadSymbol
			}
		}
	}
	return rows
}

func checkpointSymbol(id int) rune {
	if id >= 1 && id <= 9 {
		return rune('0' + id)
	}
	return '+'
}

// CarSymbol returns the letter drawn for vehicle index i.
func CarSymbol(i int) rune {
	if i < 0 || i >= 26 {
		return '*'
	}
	return rune('A' + i)
}

func (r *TerminalRenderer) worldToScreenCell(pos physics.Vector2D) track.Cell {
	x, y := pos.Cell(r.cellSize)
	return track.Cell{X: x, Y: y}
}

// Clear resets the buffer to the bare track.
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		copy(r.buffer[y], r.track[y])
	}
}

// RenderCars draws each observed car. Cars off the grid are skipped; a later
// index overwrites an earlier one in the same cell.
func (r *TerminalRenderer) RenderCars(obs []control.Observation) {
	for _, o := range obs {
		x, y := o.GridX, o.GridY
		if x >= 0 && x < r.width && y >= 0 && y < r.height {
			r.buffer[y][x] = CarSymbol(o.Index)
		}
	}
}

// Frame returns the buffer as text, one row per line, with a border.
func (r *TerminalRenderer) Frame() string {
	var b strings.Builder
	border := "+" + strings.Repeat("-", r.width) + "+\n"
	b.WriteString(border)
	for y := range r.buffer {
		b.WriteByte('|')
		b.WriteString(string(r.buffer[y]))
		b.WriteString("|\n")
	}
	b.WriteString(border)
	return b.String()
}

// Present writes the current frame with a caption line.
func (r *TerminalRenderer) Present(caption string) error {
	w := bufio.NewWriter(r.out)
	if r.ClearScreen {
		w.WriteString("\033[H\033[2J")
	}
	w.WriteString(r.Frame())
	if caption != "" {
		w.WriteString(caption)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to present frame: %w", err)
	}
	return nil
}

// Draw renders and presents one frame for obs.
func (r *TerminalRenderer) Draw(tick uint64, obs []control.Observation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Clear()
	r.RenderCars(obs)
	return r.Present(fmt.Sprintf("tick %d", tick))
}

// Observe implements the session's observation sink, drawing every
// configured number of ticks. Write errors are dropped.
func (r *TerminalRenderer) Observe(_ context.Context, tick uint64, _ time.Time, obs []control.Observation) {
	if tick%r.every != 0 {
		return
	}
	_ = r.Draw(tick, obs)
}
