package render

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/go-racer/pkg/control"
	"github.com/opd-ai/go-racer/pkg/track"
)

const testLayout = `#####
#S1.#
#.2.#
#####`

func newTestRenderer(t *testing.T, every int) (*TerminalRenderer, *bytes.Buffer) {
	t.Helper()
	grid, err := track.ParseGrid(strings.NewReader(testLayout), 10)
	if err != nil {
		t.Fatalf("ParseGrid() error = %v", err)
	}
	var out bytes.Buffer
	return NewTerminalRenderer(grid, &out, every), &out
}

func TestTerminalRenderer_DrawsTrack(t *testing.T) {
	r, _ := newTestRenderer(t, 1)

	expected := "+-----+\n" +
		"|#####|\n" +
		"|#S1.#|\n" +
		"|#.2.#|\n" +
		"|#####|\n" +
		"+-----+\n"
	if got := r.Frame(); got != expected {
		t.Errorf("Frame() =\n%s\nexpected\n%s", got, expected)
	}
}

func TestTerminalRenderer_RenderCars(t *testing.T) {
	r, _ := newTestRenderer(t, 1)

	r.RenderCars([]control.Observation{
		{Index: 0, GridX: 3, GridY: 1},
		{Index: 1, GridX: 1, GridY: 2},
		{Index: 2, GridX: 9, GridY: 9},
		{Index: 3, GridX: -1, GridY: 0},
	})

	rows := strings.Split(r.Frame(), "\n")
	if rows[2] != "|#S1A#|" {
		t.Errorf("row 1 = %q, expected %q", rows[2], "|#S1A#|")
	}
	if rows[3] != "|#B2.#|" {
		t.Errorf("row 2 = %q, expected %q", rows[3], "|#B2.#|")
	}

	r.Clear()
	if strings.ContainsAny(r.Frame(), "AB") {
		t.Error("Clear() should restore the bare track")
	}
}

func TestCarSymbol(t *testing.T) {
	tests := []struct {
		index    int
		expected rune
	}{
		{0, 'A'},
		{1, 'B'},
		{25, 'Z'},
		{26, '*'},
		{-1, '*'},
	}
	for _, tt := range tests {
		if got := CarSymbol(tt.index); got != tt.expected {
			t.Errorf("CarSymbol(%d) = %q, expected %q", tt.index, got, tt.expected)
		}
	}
}

func TestTerminalRenderer_ObserveSamplesTicks(t *testing.T) {
	r, out := newTestRenderer(t, 3)
	obs := []control.Observation{{Index: 0, GridX: 2, GridY: 2}}

	for tick := uint64(1); tick <= 6; tick++ {
		r.Observe(context.Background(), tick, time.Time{}, obs)
	}

	text := out.String()
	if n := strings.Count(text, "+-----+\n|#####|"); n != 2 {
		t.Errorf("presented %d frames, expected 2", n)
	}
	if !strings.Contains(text, "tick 3\n") || !strings.Contains(text, "tick 6\n") {
		t.Errorf("missing tick captions in output:\n%s", text)
	}
	if !strings.Contains(text, "|#.A.#|") {
		t.Errorf("car not drawn over checkpoint cell:\n%s", text)
	}
}

func TestTerminalRenderer_ClearScreen(t *testing.T) {
	r, out := newTestRenderer(t, 1)
	r.ClearScreen = true

	if err := r.Present(""); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "\033[H\033[2J") {
		t.Error("expected ANSI clear prefix")
	}
}
