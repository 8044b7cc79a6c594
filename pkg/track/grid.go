package track

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opd-ai/go-racer/pkg/physics"
)

// Grid layout symbols.
const (
	WallSymbol  = '#'
	RoadSymbol  = '.'
	StartSymbol = 'S'
)

// Grid is a track rasterized onto square cells. Anything outside the grid is
// blocked.
type Grid struct {
	width        int
	height       int
	cellSize     float64
	walls        map[Cell]bool
	checkpointAt map[Cell]int
	checkpoints  Checkpoints
	start        physics.Vector2D
}

// ParseGrid reads an ASCII layout: '#' is wall, '.' or ' ' is road, 'S' marks
// the start cell and the digits '1'..'9' mark checkpoint cells. Shorter rows
// are padded with wall.
func ParseGrid(r io.Reader, cellSize float64) (*Grid, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("%w: cell size must be positive, got %v", ErrInvalidTrack, cellSize)
	}

	var rows []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" && len(rows) == 0 {
			continue
		}
		rows = append(rows, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read track layout: %w", err)
	}
	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty layout", ErrInvalidTrack)
	}

	g := &Grid{
		height:       len(rows),
		cellSize:     cellSize,
		walls:        make(map[Cell]bool),
		checkpointAt: make(map[Cell]int),
		checkpoints:  make(Checkpoints),
	}
	for _, row := range rows {
		if len(row) > g.width {
			g.width = len(row)
		}
	}

	foundStart := false
	for y, row := range rows {
		for x := 0; x < g.width; x++ {
			cell := Cell{X: x, Y: y}
			sym := byte(WallSymbol)
			if x < len(row) {
				sym = row[x]
			}
			switch {
			case sym == WallSymbol:
				g.walls[cell] = true
			case sym == StartSymbol:
				if foundStart {
					return nil, fmt.Errorf("%w: more than one start cell", ErrInvalidTrack)
				}
				foundStart = true
				g.start = physics.CellCenter(x, y, cellSize)
			case sym >= '1' && sym <= '9':
				id := int(sym - '0')
				g.checkpointAt[cell] = id
				g.checkpoints[id] = append(g.checkpoints[id], cell)
			case sym == RoadSymbol || sym == ' ':
			default:
				return nil, fmt.Errorf("%w: unknown symbol %q at (%d, %d)", ErrInvalidTrack, sym, x, y)
			}
		}
	}

	if !foundStart {
		return nil, fmt.Errorf("%w: no start cell", ErrInvalidTrack)
	}
	if err := g.checkpoints.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadGrid reads a layout file from disk.
func LoadGrid(path string, cellSize float64) (*Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track file: %w", err)
	}
	defer file.Close()

	return ParseGrid(file, cellSize)
}

// Size returns the grid dimensions in cells.
func (g *Grid) Size() (int, int) {
	return g.width, g.height
}

// Blocked implements Oracle.
func (g *Grid) Blocked(x, y float64) bool {
	gx, gy := physics.Vector2D{X: x, Y: y}.Cell(g.cellSize)
	if gx < 0 || gy < 0 || gx >= g.width || gy >= g.height {
		return true
	}
	return g.walls[Cell{X: gx, Y: gy}]
}

// CheckpointAt implements Oracle.
func (g *Grid) CheckpointAt(x, y float64) (int, bool) {
	gx, gy := physics.Vector2D{X: x, Y: y}.Cell(g.cellSize)
	id, ok := g.checkpointAt[Cell{X: gx, Y: gy}]
	return id, ok
}

// Checkpoints implements Oracle.
func (g *Grid) Checkpoints() Checkpoints {
	return g.checkpoints
}

// StartPosition implements Oracle.
func (g *Grid) StartPosition() physics.Vector2D {
	return g.start
}

// CellSize implements Oracle.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}
