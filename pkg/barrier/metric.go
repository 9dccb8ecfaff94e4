package barrier

import (
	"github.com/opera-rt/opera/pkg/geometry"
	"github.com/opera-rt/opera/pkg/sample"
)

// Metric computes the two distance notions a BarrierSequenceSection needs:
// an upper bound on how far a human segment may have moved between two
// observed samples, and a lower bound on the distance between a human
// sample and a robot sample. The source's section-kind polymorphism maps to
// this small closed set of two implementations (sphere, capsule) rather
// than a wider interface hierarchy.
type Metric interface {
	HumanToHuman(newer, older *sample.BodySegmentSample) float64
	HumanToRobot(human, robot *sample.BodySegmentSample) float64
}

// SphereMetric bounds both quantities using bounding spheres only: cheaper
// to evaluate, looser bounds.
type SphereMetric struct{}

// HumanToHuman returns ||c'-c|| + r' - r (clamped >= 0) on bounding spheres.
func (SphereMetric) HumanToHuman(newer, older *sample.BodySegmentSample) float64 {
	return geometry.SphereDistance(older.BoundingSphere(), newer.BoundingSphere())
}

// HumanToRobot returns the sphere-to-capsule distance between the human's
// bounding sphere and the robot segment thickened by its thickness+error.
func (SphereMetric) HumanToRobot(human, robot *sample.BodySegmentSample) float64 {
	return geometry.SphereCapsuleDistance(human.BoundingSphere(), robot.Segment(), robot.Thickness+robot.Error())
}

// CapsuleMetric bounds both quantities using the full segment geometry:
// more expensive, tighter bounds.
type CapsuleMetric struct{}

// HumanToHuman returns
// max(dist(h'.head, h.segment), dist(h'.tail, h.segment)) + thickness' +
// error' - thickness - error, clamped >= 0.
func (CapsuleMetric) HumanToHuman(newer, older *sample.BodySegmentSample) float64 {
	seg := older.Segment()
	dHead := geometry.DistancePointSegment(newer.HeadCentre(), seg)
	dTail := geometry.DistancePointSegment(newer.TailCentre(), seg)
	d := dHead
	if dTail > d {
		d = dTail
	}
	d += newer.Thickness + newer.Error() - older.Thickness - older.Error()
	if d < 0 {
		return 0
	}
	return d
}

// HumanToRobot returns max(0, segment_distance - sum(thickness, error)).
func (CapsuleMetric) HumanToRobot(human, robot *sample.BodySegmentSample) float64 {
	d := geometry.DistanceSegmentSegment(human.Segment(), robot.Segment())
	d -= human.Thickness + human.Error() + robot.Thickness + robot.Error()
	if d < 0 {
		return 0
	}
	return d
}
