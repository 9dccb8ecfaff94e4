package geometry

import "math"

// Box is an axis-aligned bounding box. Construct empty boxes with
// EmptyBox; the zero value is the degenerate box at the origin.
type Box struct {
	empty    bool
	Min, Max Point
}

// EmptyBox returns the empty box.
func EmptyBox() Box {
	return Box{empty: true}
}

// BoxFromPoint returns the degenerate box containing exactly p.
func BoxFromPoint(p Point) Box {
	return Box{Min: p, Max: p}
}

// IsEmpty reports whether the box contains no points.
func (b Box) IsEmpty() bool {
	return b.empty
}

// Hull returns the smallest box containing both b and o.
func (b Box) Hull(o Box) Box {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	return Box{
		Min: Point{min(b.Min.X, o.Min.X), min(b.Min.Y, o.Min.Y), min(b.Min.Z, o.Min.Z)},
		Max: Point{max(b.Max.X, o.Max.X), max(b.Max.Y, o.Max.Y), max(b.Max.Z, o.Max.Z)},
	}
}

// Widen grows b by eps in each dimension. Widening an empty box is a no-op.
func Widen(b Box, eps float64) Box {
	if b.IsEmpty() {
		return b
	}
	return Box{
		Min: Point{b.Min.X - eps, b.Min.Y - eps, b.Min.Z - eps},
		Max: Point{b.Max.X + eps, b.Max.Y + eps, b.Max.Z + eps},
	}
}

// Centre returns the midpoint of the box. Undefined on an empty box.
func (b Box) Centre() Point {
	return Point{
		(b.Min.X + b.Max.X) / 2,
		(b.Min.Y + b.Max.Y) / 2,
		(b.Min.Z + b.Max.Z) / 2,
	}
}

// CircleRadius returns the radius of the minimum enclosing sphere of the box,
// i.e. half the length of its space diagonal. Zero for an empty box.
func (b Box) CircleRadius() float64 {
	if b.IsEmpty() {
		return 0
	}
	d := b.Max.Sub(b.Min)
	return d.Norm() / 2
}

// Overlaps reports whether two boxes intersect. Two empty boxes, or an empty
// box against anything, never overlap.
func (b Box) Overlaps(o Box) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y &&
		b.Min.Z <= o.Max.Z && o.Min.Z <= b.Max.Z
}

func min(a, b float64) float64 {
	return math.Min(a, b)
}

func max(a, b float64) float64 {
	return math.Max(a, b)
}
