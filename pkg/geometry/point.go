// Package geometry provides the 3D primitives (points, boxes, spheres) and
// distance computations the collision-detection pipeline is built on.
package geometry

import "math"

// Point is a triple of coordinates. A Point is "undefined" until at least
// one observation has been folded into it; callers track definedness
// externally (via Box.IsEmpty or BodySegmentSample) rather than through a
// sentinel value here.
type Point struct {
	X, Y, Z float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y, p.Z - q.Z}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y, p.Z + q.Z}
}

// Scale returns p scaled by s.
func (p Point) Scale(s float64) Point {
	return Point{p.X * s, p.Y * s, p.Z * s}
}

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y + p.Z*q.Z
}

// Norm returns the Euclidean length of p treated as a vector from the origin.
func (p Point) Norm() float64 {
	return math.Sqrt(p.Dot(p))
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return a.Sub(b).Norm()
}
