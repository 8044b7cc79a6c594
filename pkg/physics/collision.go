// pkg/physics/collision.go
package physics

import (
	"math"
	"sort"
)

// Rect is an axis-aligned rectangle described by its center and extents.
type Rect struct {
	Center Vector2D
	Width  float64
	Height float64
}

// Contains reports whether point lies inside the rectangle. The right and
// bottom edges are exclusive.
func (r Rect) Contains(point Vector2D) bool {
	return point.X >= r.Center.X-r.Width/2 &&
		point.X < r.Center.X+r.Width/2 &&
		point.Y >= r.Center.Y-r.Height/2 &&
		point.Y < r.Center.Y+r.Height/2
}

// Overlaps reports whether two rectangles share interior area. Touching
// edges do not count as overlap.
func (r Rect) Overlaps(other Rect) bool {
	return math.Abs(r.Center.X-other.Center.X) < (r.Width+other.Width)/2 &&
		math.Abs(r.Center.Y-other.Center.Y) < (r.Height+other.Height)/2
}

// Expand grows the rectangle by margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{Center: r.Center, Width: r.Width + 2*margin, Height: r.Height + 2*margin}
}

// Hitbox returns the axis-aligned bounds of a width x length body centered at
// center and rotated to headingDeg, with both extents multiplied by scale.
// A scale below 1 gives the shrunk hitbox used for car-to-car contact.
func Hitbox(center Vector2D, width, length, headingDeg, scale float64) Rect {
	rad := Radians(headingDeg)
	sin := math.Abs(math.Sin(rad))
	cos := math.Abs(math.Cos(rad))
	return Rect{
		Center: center,
		Width:  (width*cos + length*sin) * scale,
		Height: (width*sin + length*cos) * scale,
	}
}

// minQuadSize stops subdivision so that coincident points cannot recurse
// without bound.
const minQuadSize = 1e-3

// QuadTree is a broadphase index of integer ids keyed by position.
type QuadTree struct {
	Boundary  Rect
	Capacity  int
	Points    []Vector2D
	IDs       []int
	Divided   bool
	NorthWest *QuadTree
	NorthEast *QuadTree
	SouthWest *QuadTree
	SouthEast *QuadTree
}

// NewQuadTree creates a new quad tree with the given boundary and capacity
func NewQuadTree(boundary Rect, capacity int) *QuadTree {
	if capacity < 1 {
		capacity = 1
	}
	return &QuadTree{
		Boundary: boundary,
		Capacity: capacity,
		Points:   make([]Vector2D, 0, capacity),
		IDs:      make([]int, 0, capacity),
	}
}

// Insert adds id at point. It returns false when the point lies outside the
// tree boundary.
func (qt *QuadTree) Insert(point Vector2D, id int) bool {
	if !qt.Boundary.Contains(point) {
		return false
	}

	if !qt.Divided && (len(qt.Points) < qt.Capacity || qt.Boundary.Width < minQuadSize) {
		qt.Points = append(qt.Points, point)
		qt.IDs = append(qt.IDs, id)
		return true
	}

	if !qt.Divided {
		qt.subdivide()
	}

	return qt.NorthWest.Insert(point, id) ||
		qt.NorthEast.Insert(point, id) ||
		qt.SouthWest.Insert(point, id) ||
		qt.SouthEast.Insert(point, id)
}

// Clear empties the tree while keeping its boundary and capacity.
func (qt *QuadTree) Clear() {
	qt.Points = qt.Points[:0]
	qt.IDs = qt.IDs[:0]
	qt.Divided = false
	qt.NorthWest, qt.NorthEast, qt.SouthWest, qt.SouthEast = nil, nil, nil, nil
}

func (qt *QuadTree) subdivide() {
	x := qt.Boundary.Center.X
	y := qt.Boundary.Center.Y
	w := qt.Boundary.Width / 2
	h := qt.Boundary.Height / 2

	qt.NorthWest = NewQuadTree(Rect{Center: Vector2D{X: x - w/2, Y: y - h/2}, Width: w, Height: h}, qt.Capacity)
	qt.NorthEast = NewQuadTree(Rect{Center: Vector2D{X: x + w/2, Y: y - h/2}, Width: w, Height: h}, qt.Capacity)
	qt.SouthWest = NewQuadTree(Rect{Center: Vector2D{X: x - w/2, Y: y + h/2}, Width: w, Height: h}, qt.Capacity)
	qt.SouthEast = NewQuadTree(Rect{Center: Vector2D{X: x + w/2, Y: y + h/2}, Width: w, Height: h}, qt.Capacity)
	qt.Divided = true
}

// Query returns the ids whose points fall inside area, in ascending order.
func (qt *QuadTree) Query(area Rect) []int {
	found := qt.collect(area, nil)
	sort.Ints(found)
	return found
}

func (qt *QuadTree) collect(area Rect, found []int) []int {
	if !qt.intersects(area) {
		return found
	}
	for i, point := range qt.Points {
		if area.Contains(point) {
			found = append(found, qt.IDs[i])
		}
	}
	if !qt.Divided {
		return found
	}
	found = qt.NorthWest.collect(area, found)
	found = qt.NorthEast.collect(area, found)
	found = qt.SouthWest.collect(area, found)
	return qt.SouthEast.collect(area, found)
}

func (qt *QuadTree) intersects(area Rect) bool {
	return !(area.Center.X-area.Width/2 > qt.Boundary.Center.X+qt.Boundary.Width/2 ||
		area.Center.X+area.Width/2 < qt.Boundary.Center.X-qt.Boundary.Width/2 ||
		area.Center.Y-area.Height/2 > qt.Boundary.Center.Y+qt.Boundary.Height/2 ||
		area.Center.Y+area.Height/2 < qt.Boundary.Center.Y-qt.Boundary.Height/2)
}
