package board

import "fmt"

// Point is an absolute tile coordinate. Y grows towards the north.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// String returns the point as "(x, y)"
func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Add returns p shifted by (dx, dy)
func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Rect is an inclusive rectangle. Start is the top-left corner (min x, max y)
// and End the bottom-right corner (max x, min y).
type Rect struct {
	Start Point `json:"start_p"`
	End   Point `json:"end_p"`
}

// NewRect builds the normalized rectangle spanning two arbitrary corners
func NewRect(a, b Point) Rect {
	return Rect{
		Start: Point{X: min(a.X, b.X), Y: max(a.Y, b.Y)},
		End:   Point{X: max(a.X, b.X), Y: min(a.Y, b.Y)},
	}
}

// RectAround returns the rectangle centered on p with the given half extents
func RectAround(p Point, width, height int) Rect {
	return Rect{
		Start: Point{X: p.X - width, Y: p.Y + height},
		End:   Point{X: p.X + width, Y: p.Y - height},
	}
}

// Contains reports whether p lies inside r
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Start.X && p.X <= r.End.X &&
		p.Y <= r.Start.Y && p.Y >= r.End.Y
}

// Overlaps reports whether r and o share at least one tile
func (r Rect) Overlaps(o Rect) bool {
	return r.Start.X <= o.End.X && o.Start.X <= r.End.X &&
		r.End.Y <= o.Start.Y && o.End.Y <= r.Start.Y
}

// Width is the number of columns covered by r
func (r Rect) Width() int {
	return r.End.X - r.Start.X + 1
}

// Height is the number of rows covered by r
func (r Rect) Height() int {
	return r.Start.Y - r.End.Y + 1
}

// Area is the number of tiles covered by r
func (r Rect) Area() int {
	return r.Width() * r.Height()
}

// Fits reports whether r is valid and covers at most limit tiles. Widths and
// heights that overflow int never fit.
func (r Rect) Fits(limit int) bool {
	if !r.Valid() {
		return false
	}
	w, h := r.Width(), r.Height()
	return w > 0 && h > 0 && w <= limit && h <= limit/w
}

// Valid reports whether Start really is the top-left corner of End
func (r Rect) Valid() bool {
	return r.Start.X <= r.End.X && r.Start.Y >= r.End.Y
}

// Expand grows r so that it also covers p
func (r Rect) Expand(p Point) Rect {
	return Rect{
		Start: Point{X: min(r.Start.X, p.X), Y: max(r.Start.Y, p.Y)},
		End:   Point{X: max(r.End.X, p.X), Y: min(r.End.Y, p.Y)},
	}
}

// neighborOffsets is the fixed scan order used for mine placement, demotion
// and spawn lookups. Changing it changes generated boards for a given seed.
var neighborOffsets = [8][2]int{
	{0, 1}, {0, -1}, {-1, 0}, {1, 0},
	{-1, 1}, {1, 1}, {-1, -1}, {1, -1},
}

// floorDiv divides rounding towards negative infinity, so that tile -1 lives
// in section -1 rather than section 0.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
