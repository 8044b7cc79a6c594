package clock

import (
	"testing"
	"time"
)

func TestManual_AdvanceAndSet(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewManual(start)

	if !c.Now().Equal(start) {
		t.Fatalf("Now() = %v, expected %v", c.Now(), start)
	}

	c.Advance(250 * time.Millisecond)
	if got := c.Now().Sub(start); got != 250*time.Millisecond {
		t.Errorf("elapsed = %v, expected 250ms", got)
	}

	earlier := start.Add(-time.Second)
	c.Set(earlier)
	if !c.Now().Equal(earlier) {
		t.Errorf("Now() after Set = %v, expected %v", c.Now(), earlier)
	}
}

func TestSystem_Now(t *testing.T) {
	before := time.Now()
	got := System{}.Now()
	if got.Before(before) {
		t.Errorf("System.Now() = %v is before %v", got, before)
	}
}

func TestMillis(t *testing.T) {
	tests := []struct {
		in       time.Duration
		expected float64
	}{
		{0, 0},
		{time.Millisecond, 1},
		{1500 * time.Microsecond, 1.5},
		{time.Second, 1000},
	}
	for _, tt := range tests {
		if got := Millis(tt.in); got != tt.expected {
			t.Errorf("Millis(%v) = %v, expected %v", tt.in, got, tt.expected)
		}
	}
}
