// Package lap turns checkpoint crossings into lap counts, lap times and a
// continuous progress fraction.
package lap

import (
	"math"
	"sort"
	"time"

	"github.com/opd-ai/go-racer/pkg/clock"
	"github.com/opd-ai/go-racer/pkg/physics"
	"github.com/opd-ai/go-racer/pkg/track"
)

// Crossing reports what a single Collect call did.
type Crossing struct {
	Collected    bool
	LapCompleted bool

	// LapTime is the finished lap's duration in seconds when LapCompleted.
	LapTime float64
}

// Tracker follows one car around the lap. Checkpoints must be collected in
// order 1..K; collecting K closes the lap.
type Tracker struct {
	checkpoints track.Checkpoints
	cellSize    float64
	startLine   physics.Vector2D
	total       int

	collected map[int]struct{}
	next      int
	laps      int
	lapStart  time.Time
	lapTimes  []float64
}

// NewTracker creates a tracker whose first lap starts at now. startLine is
// where this car begins, used as the origin of the first progress segment.
func NewTracker(checkpoints track.Checkpoints, cellSize float64, startLine physics.Vector2D, now time.Time) *Tracker {
	return &Tracker{
		checkpoints: checkpoints,
		cellSize:    cellSize,
		startLine:   startLine,
		total:       checkpoints.Count(),
		collected:   make(map[int]struct{}),
		next:        1,
		lapStart:    now,
	}
}

// Collect records that the car is over checkpoint id at now. Only the next
// expected id counts; anything else is ignored.
func (t *Tracker) Collect(id int, now time.Time) Crossing {
	if t.total == 0 || id != t.next {
		return Crossing{}
	}
	t.collected[id] = struct{}{}
	t.next++

	c := Crossing{Collected: true}
	if t.next > t.total {
		c.LapCompleted = true
		c.LapTime = clock.Millis(now.Sub(t.lapStart)) / 1000
		t.laps++
		t.lapTimes = append(t.lapTimes, c.LapTime)
		t.lapStart = now
		t.collected = make(map[int]struct{})
		t.next = 1
	}
	return c
}

// Progress estimates how far through the current lap a car at position is,
// in [0, 1]. It interpolates by straight-line distance between the last
// collected checkpoint (or the start line) and the next one.
func (t *Tracker) Progress(position physics.Vector2D) float64 {
	if t.total == 0 {
		return 0
	}
	completed := len(t.collected)
	if completed >= t.total {
		return 1
	}

	prev := 0
	for id := range t.collected {
		if id > prev {
			prev = id
		}
	}

	prevPos, ok := t.startLine, true
	if prev > 0 {
		prevPos, ok = t.checkpoints.Centroid(prev, t.cellSize)
	}
	nextPos, nextOK := t.checkpoints.Centroid(prev%t.total+1, t.cellSize)
	if !ok || !nextOK {
		return float64(completed) / float64(t.total)
	}

	frac := 0.0
	if segment := prevPos.Distance(nextPos); segment > 0 {
		frac = physics.Clamp01(prevPos.Distance(position) / segment)
	}
	return physics.Clamp01((float64(prev) + frac) / float64(t.total))
}

// Total returns K.
func (t *Tracker) Total() int {
	return t.total
}

// NextExpected returns the id that will be accepted next.
func (t *Tracker) NextExpected() int {
	return t.next
}

// Collected returns the ids collected this lap in ascending order.
func (t *Tracker) Collected() []int {
	ids := make([]int, 0, len(t.collected))
	for id := range t.collected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Laps returns the number of completed laps.
func (t *Tracker) Laps() int {
	return t.laps
}

// LapNumber returns the 1-based number of the lap in progress.
func (t *Tracker) LapNumber() int {
	return t.laps + 1
}

// LapTimes returns a copy of the completed lap durations in seconds.
func (t *Tracker) LapTimes() []float64 {
	out := make([]float64, len(t.lapTimes))
	copy(out, t.lapTimes)
	return out
}

// BestLap returns the fastest completed lap in seconds, or false before the
// first lap is done.
func (t *Tracker) BestLap() (float64, bool) {
	if len(t.lapTimes) == 0 {
		return 0, false
	}
	best := math.Inf(1)
	for _, lt := range t.lapTimes {
		best = math.Min(best, lt)
	}
	return best, true
}

// CurrentLapTime returns the seconds elapsed in the lap in progress.
func (t *Tracker) CurrentLapTime(now time.Time) float64 {
	d := now.Sub(t.lapStart)
	if d < 0 {
		return 0
	}
	return clock.Millis(d) / 1000
}

// Reset discards all progress and starts a fresh first lap at now.
func (t *Tracker) Reset(now time.Time) {
	t.collected = make(map[int]struct{})
	t.next = 1
	t.laps = 0
	t.lapStart = now
	t.lapTimes = nil
}
