package physics

// Control ordinates for the two easing curves used by the vehicle model.
const (
	ThrottleEaseP1 = 0.25
	ThrottleEaseP2 = 0.75
	RecoilEaseP1   = 0.2
	RecoilEaseP2   = 0.8
)

// Bezier evaluates the one-dimensional cubic Bezier curve anchored at 0 and 1
// with control ordinates p1 and p2:
//
//	B(t) = 3(1-t)²t·p1 + 3(1-t)t²·p2 + t³
//
// t is clamped to [0, 1].
func Bezier(t, p1, p2 float64) float64 {
	t = Clamp01(t)
	u := 1 - t
	return 3*u*u*t*p1 + 3*u*t*t*p2 + t*t*t
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}
