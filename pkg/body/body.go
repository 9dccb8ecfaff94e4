package body

import "fmt"

// Segment records one thick line segment of a body: its index within the
// body's segment list, the ids of its two keypoints, and a scalar thickness.
type Segment struct {
	Index         int
	HeadID, TailID string
	Thickness     float64
}

// Body is an identifier, an ordered list of keypoint ids, and an ordered
// list of segments between those keypoints.
type Body struct {
	ID          string
	KeypointIDs []string
	Segments    []Segment
}

// NumSegments returns the number of segments in the body.
func (b *Body) NumSegments() int {
	return len(b.Segments)
}

// Segment returns the i-th segment.
func (b *Body) Segment(i int) Segment {
	return b.Segments[i]
}

// NumKeypoints returns the number of keypoints in the body.
func (b *Body) NumKeypoints() int {
	return len(b.KeypointIDs)
}

// KeypointIndex returns the position of keypoint id within the body's
// ordered keypoint list, or -1 if the body has no such keypoint.
func (b *Body) KeypointIndex(id string) int {
	for i, k := range b.KeypointIDs {
		if k == id {
			return i
		}
	}
	return -1
}

// HasKeypoint reports whether id names one of the body's keypoints.
func (b *Body) HasKeypoint(id string) bool {
	for _, k := range b.KeypointIDs {
		if k == id {
			return true
		}
	}
	return false
}

// NewBody constructs a Body from its presentation fields: a keypoint id
// list, a list of (head,tail) keypoint-id pairs, and a parallel list of
// segment thicknesses. It is a precondition violation — returned as an
// error here rather than panicking, per the pluggable-transport boundary
// that calls it — for the pairs/thicknesses slices to differ in length or
// for a thickness to be negative.
func NewBody(id string, keypointIDs []string, segmentPairs [][2]string, thicknesses []float64) (Body, error) {
	if len(segmentPairs) != len(thicknesses) {
		return Body{}, fmt.Errorf("body %q: %d segment pairs but %d thicknesses", id, len(segmentPairs), len(thicknesses))
	}
	segments := make([]Segment, len(segmentPairs))
	for i, pair := range segmentPairs {
		if thicknesses[i] < 0 {
			return Body{}, fmt.Errorf("body %q: segment %d has negative thickness %v", id, i, thicknesses[i])
		}
		segments[i] = Segment{Index: i, HeadID: pair[0], TailID: pair[1], Thickness: thicknesses[i]}
	}
	return Body{ID: id, KeypointIDs: keypointIDs, Segments: segments}, nil
}

// Human is a body with no message frequency of its own: its sampling cadence
// is whatever the sender chooses to publish at.
type Human struct {
	Body
}

// Robot is a body that additionally carries a positive message frequency
// (samples per second), used to convert sample-index spans into durations.
type Robot struct {
	Body
	MessageFrequency int
}

// NewRobot validates that MessageFrequency is positive before constructing
// the Robot; a non-positive frequency would make History's sample-index
// arithmetic meaningless.
func NewRobot(b Body, messageFrequency int) (Robot, error) {
	if messageFrequency <= 0 {
		return Robot{}, fmt.Errorf("robot %q: message frequency must be positive, got %d", b.ID, messageFrequency)
	}
	return Robot{Body: b, MessageFrequency: messageFrequency}, nil
}
