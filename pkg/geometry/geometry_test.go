package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxEmptyHull(t *testing.T) {
	empty := EmptyBox()
	require.True(t, empty.IsEmpty())

	b := BoxFromPoint(Point{1, 2, 3})
	hull := empty.Hull(b)
	assert.False(t, hull.IsEmpty())
	assert.Equal(t, b, hull)
}

func TestWidenEmptyIsNoop(t *testing.T) {
	assert.True(t, Widen(EmptyBox(), 5).IsEmpty())
}

func TestBoxCircleRadius(t *testing.T) {
	b := Box{Min: Point{0, 0, 0}, Max: Point{2, 0, 0}}
	assert.InDelta(t, 1.0, b.CircleRadius(), 1e-9)
}

func TestDistanceSegmentSegmentSymmetric(t *testing.T) {
	a := Segment{Head: Point{0, 0, 0}, Tail: Point{1, 0, 0}}
	b := Segment{Head: Point{0, 1, 0}, Tail: Point{1, 1, 0}}
	d1 := DistanceSegmentSegment(a, b)
	d2 := DistanceSegmentSegment(b, a)
	assert.InDelta(t, d1, d2, 1e-9)
	assert.InDelta(t, 1.0, d1, 1e-9)
}

func TestDistanceSegmentSegmentTouching(t *testing.T) {
	a := Segment{Head: Point{0, 0, 0}, Tail: Point{1, 0, 0}}
	b := Segment{Head: Point{1, 0, 0}, Tail: Point{2, 1, 0}}
	assert.InDelta(t, 0.0, DistanceSegmentSegment(a, b), 1e-9)
}

func TestSphereDistanceClampedNonNegative(t *testing.T) {
	a := Sphere{Centre: Point{0, 0, 0}, Radius: 5}
	b := Sphere{Centre: Point{0, 0, 0}, Radius: 1}
	assert.Equal(t, 0.0, SphereDistance(a, b))
}

func TestSphereCapsuleDistance(t *testing.T) {
	s := Sphere{Centre: Point{0, 0, 5}, Radius: 1}
	cap := Segment{Head: Point{0, 0, 0}, Tail: Point{1, 0, 0}}
	d := SphereCapsuleDistance(s, cap, 0.5)
	assert.InDelta(t, 3.5, d, 1e-9)
}
