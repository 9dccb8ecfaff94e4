// Package sample implements BodySegmentSample, the per-segment spatial
// observation with accumulated error bounds that the rest of the pipeline
// tests for intersection.
package sample

import (
	"github.com/opera-rt/opera/pkg/geometry"
)

// BodySegmentSample is a snapshot of one body segment: bounding boxes for
// its head and tail keypoints (refined as more observations arrive),
// derived centres, and an error radius enclosing whichever of the head or
// tail bounds is larger.
type BodySegmentSample struct {
	Thickness float64

	headBox, tailBox       geometry.Box
	headCentre, tailCentre geometry.Point
	errorRadius            float64

	bbox    geometry.Box
	bsphere geometry.Sphere
}

// NewEmpty returns a sample for a segment of the given thickness with no
// observations yet folded in.
func NewEmpty(thickness float64) BodySegmentSample {
	return BodySegmentSample{
		Thickness: thickness,
		headBox:   geometry.EmptyBox(),
		tailBox:   geometry.EmptyBox(),
		bbox:      geometry.EmptyBox(),
	}
}

// IsEmpty reports whether the sample has not yet received both a head and
// a tail observation.
func (s *BodySegmentSample) IsEmpty() bool {
	return s.headBox.IsEmpty() || s.tailBox.IsEmpty()
}

// Error returns the error radius: the circumradius of whichever of the
// head/tail bounding boxes is larger. Zero while the sample is empty.
func (s *BodySegmentSample) Error() float64 {
	if s.IsEmpty() {
		return 0
	}
	return s.errorRadius
}

// BoundingBox returns the memoised bounding box of the whole thick
// segment: the hull of the head and tail centres widened by the error
// radius plus the thickness.
func (s *BodySegmentSample) BoundingBox() geometry.Box {
	return s.bbox
}

// BoundingSphere returns the memoised bounding sphere of the whole thick
// segment, centred midway between the head and tail centres.
func (s *BodySegmentSample) BoundingSphere() geometry.Sphere {
	return s.bsphere
}

// HeadCentre returns the centre of the head bounding box.
func (s *BodySegmentSample) HeadCentre() geometry.Point {
	return s.headCentre
}

// TailCentre returns the centre of the tail bounding box.
func (s *BodySegmentSample) TailCentre() geometry.Point {
	return s.tailCentre
}

// Segment returns the line segment between the head and tail centres.
func (s *BodySegmentSample) Segment() geometry.Segment {
	return geometry.Segment{Head: s.headCentre, Tail: s.tailCentre}
}

// Update folds additional observed head/tail points into the sample,
// widening the head and tail bounding boxes, recomputing centres as
// bounding-box centres, and refreshing the memoised error radius, bounding
// box, and bounding sphere.
func (s *BodySegmentSample) Update(heads, tails []geometry.Point) {
	for _, p := range heads {
		s.headBox = s.headBox.Hull(geometry.BoxFromPoint(p))
	}
	for _, p := range tails {
		s.tailBox = s.tailBox.Hull(geometry.BoxFromPoint(p))
	}
	if s.IsEmpty() {
		return
	}
	s.headCentre = s.headBox.Centre()
	s.tailCentre = s.tailBox.Centre()

	headR := s.headBox.CircleRadius()
	tailR := s.tailBox.CircleRadius()
	if headR > tailR {
		s.errorRadius = headR
	} else {
		s.errorRadius = tailR
	}

	centreHull := geometry.BoxFromPoint(s.headCentre).Hull(geometry.BoxFromPoint(s.tailCentre))
	s.bbox = geometry.Widen(centreHull, s.errorRadius+s.Thickness)
	s.bsphere = geometry.Sphere{
		Centre: centreHull.Centre(),
		Radius: geometry.Distance(s.headCentre, s.tailCentre)/2 + s.errorRadius + s.Thickness,
	}
}

// Intersects reports whether two samples' segments may be touching: their
// bounding boxes must overlap, and the segment-to-segment distance between
// their centrelines must be no more than the sum of both thicknesses and
// error radii.
func Intersects(a, b *BodySegmentSample) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	if !a.bbox.Overlaps(b.bbox) {
		return false
	}
	d := geometry.DistanceSegmentSegment(a.Segment(), b.Segment())
	return d <= a.Thickness+a.Error()+b.Thickness+b.Error()
}
