// pkg/physics/vector.go
package physics

import "math"

// Vector2D is a position or displacement in track space. Y grows downward,
// matching the grid the track is rasterized on.
type Vector2D struct {
	X float64
	Y float64
}

// Add returns the sum of two vectors
func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub returns the difference between two vectors
func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{X: v.X - other.X, Y: v.Y - other.Y}
}

// Scale multiplies the vector by a scalar value
func (v Vector2D) Scale(factor float64) Vector2D {
	return Vector2D{X: v.X * factor, Y: v.Y * factor}
}

// Length returns the magnitude of the vector
func (v Vector2D) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Distance returns the distance between two points
func (v Vector2D) Distance(other Vector2D) float64 {
	return v.Sub(other).Length()
}

// Cell returns the grid cell containing the point for the given cell size.
// Negative coordinates floor toward negative infinity.
func (v Vector2D) Cell(cellSize float64) (int, int) {
	if cellSize <= 0 {
		return 0, 0
	}
	return int(math.Floor(v.X / cellSize)), int(math.Floor(v.Y / cellSize))
}

// CellCenter returns the center point of grid cell (gx, gy).
func CellCenter(gx, gy int, cellSize float64) Vector2D {
	return Vector2D{
		X: float64(gx)*cellSize + cellSize/2,
		Y: float64(gy)*cellSize + cellSize/2,
	}
}

// Centroid returns the average of the given points and false when there are none.
func Centroid(points []Vector2D) (Vector2D, bool) {
	if len(points) == 0 {
		return Vector2D{}, false
	}
	var sum Vector2D
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(points))), true
}

// Radians converts an angle in degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// HeadingVector returns the displacement produced by moving magnitude units
// along headingDeg. Heading 0 points up (-Y) and grows clockwise.
func HeadingVector(headingDeg, magnitude float64) Vector2D {
	rad := Radians(headingDeg)
	return Vector2D{
		X: math.Sin(rad) * magnitude,
		Y: -math.Cos(rad) * magnitude,
	}
}
