package barrier

import (
	"math"
	"sort"

	"github.com/opera-rt/opera/pkg/sample"
)

// MinimumDistanceBarrier is a lower bound on the distance between a
// reference human sample and every robot sample whose (trace, sample)
// position falls within Range.
type MinimumDistanceBarrier struct {
	MinimumDistance float64
	Range           TraceSampleRange
}

// IsCollision reports whether this barrier records a zero-distance
// (touching) observation.
func (b *MinimumDistanceBarrier) IsCollision() bool {
	return b.MinimumDistance == 0
}

// Section is a BarrierSequenceSection: a reference human sample plus a
// deque of barriers with strictly decreasing MinimumDistance.
type Section struct {
	metric    Metric
	reference *sample.BodySegmentSample
	barriers  []MinimumDistanceBarrier
}

// NewSection returns an empty section referencing human, using metric to
// compute distances.
func NewSection(metric Metric, human *sample.BodySegmentSample) *Section {
	return &Section{metric: metric, reference: human}
}

// HumanSample returns the section's reference human sample.
func (s *Section) HumanSample() *sample.BodySegmentSample {
	return s.reference
}

// IsEmpty reports whether the section has recorded no barriers.
func (s *Section) IsEmpty() bool {
	return len(s.barriers) == 0
}

// Size returns the number of recorded barriers.
func (s *Section) Size() int {
	return len(s.barriers)
}

// Barriers returns a read-only view of the recorded barriers, oldest first.
func (s *Section) Barriers() []MinimumDistanceBarrier {
	return s.barriers
}

// LastBarrier returns the most recently appended barrier, if any.
func (s *Section) LastBarrier() (MinimumDistanceBarrier, bool) {
	if len(s.barriers) == 0 {
		return MinimumDistanceBarrier{}, false
	}
	return s.barriers[len(s.barriers)-1], true
}

// LastUpperTraceIndex returns the maximum trace index of the last barrier,
// or 0 if the section is empty.
func (s *Section) LastUpperTraceIndex() int {
	if len(s.barriers) == 0 {
		return 0
	}
	return s.barriers[len(s.barriers)-1].Range.MaximumTraceIndex()
}

// ReachesCollision reports whether the last barrier records a collision.
func (s *Section) ReachesCollision() bool {
	if len(s.barriers) == 0 {
		return false
	}
	return s.barriers[len(s.barriers)-1].IsCollision()
}

// MinimumHumanRobotDistance evaluates the section's metric between a human
// sample and a robot sample.
func (s *Section) MinimumHumanRobotDistance(human, robot *sample.BodySegmentSample) float64 {
	return s.metric.HumanToRobot(human, robot)
}

// AreColliding reports whether the metric's minimum distance between human
// and robot is zero.
func (s *Section) AreColliding(human, robot *sample.BodySegmentSample) bool {
	return s.metric.HumanToRobot(human, robot) == 0
}

func (s *Section) currentMinimumDistance() float64 {
	if len(s.barriers) == 0 {
		return math.Inf(1)
	}
	return s.barriers[len(s.barriers)-1].MinimumDistance
}

// CheckAndUpdate evaluates the distance between the section's reference
// human sample and robotSample at index. If the section already reached
// collision it returns false without recomputing. Otherwise it either
// appends a new barrier (the distance dropped) or extends the last
// barrier's range, and returns whether the distance is still strictly
// positive.
func (s *Section) CheckAndUpdate(robotSample *sample.BodySegmentSample, index TraceSampleIndex) bool {
	if s.ReachesCollision() {
		return false
	}
	d := s.metric.HumanToRobot(s.reference, robotSample)
	if d < s.currentMinimumDistance() {
		s.barriers = append(s.barriers, MinimumDistanceBarrier{
			MinimumDistance: d,
			Range:           NewTraceSampleRange(index),
		})
	} else {
		s.barriers[len(s.barriers)-1].Range.UpdateWith(index)
	}
	return d > 0
}

// RemoveLastBarrier removes the section's last barrier, if any.
func (s *Section) RemoveLastBarrier() {
	if n := len(s.barriers); n > 0 {
		s.barriers = s.barriers[:n-1]
	}
}

// reuseElement binary searches for the latest barrier whose
// MinimumDistance still exceeds the maximum possible human-to-human
// displacement between the section's reference sample and other. Barriers
// are sorted by strictly decreasing MinimumDistance, so the surviving set
// is a prefix [0, result]. Returns -1 if even the first barrier is
// invalidated.
func (s *Section) reuseElement(other *sample.BodySegmentSample) int {
	if len(s.barriers) == 0 {
		return -1
	}
	maxDisplacement := s.metric.HumanToHuman(other, s.reference)
	return sort.Search(len(s.barriers), func(i int) bool {
		return s.barriers[i].MinimumDistance <= maxDisplacement
	}) - 1
}

// Reset implements the four-step reset procedure: trim barriers whose
// range exceeds hiTrace, drop barriers invalidated by the human-sample
// change, drop leading barriers whose range ends before (loTrace,
// sampleIndex), and scale the remainder down by loTrace.
func (s *Section) Reset(other *sample.BodySegmentSample, loTrace, hiTrace, sampleIndex int) {
	s.trimDownTraceIndexRangesTo(hiTrace)

	r := s.reuseElement(other)
	if r < 0 {
		s.barriers = nil
		return
	}
	if r+1 < len(s.barriers) {
		s.barriers = s.barriers[:r+1]
	}

	start := 0
	for start < len(s.barriers) {
		rg := &s.barriers[start].Range
		if rg.MaximumTraceIndex() < loTrace ||
			(rg.MaximumTraceIndex() == loTrace && rg.MaximumSampleIndex() < sampleIndex) {
			start++
			continue
		}
		break
	}
	s.barriers = append([]MinimumDistanceBarrier(nil), s.barriers[start:]...)

	if loTrace > 0 {
		for i := range s.barriers {
			s.barriers[i].Range.ScaleDownTraceOf(loTrace)
		}
	}
}

func (s *Section) trimDownTraceIndexRangesTo(traceIndexBound int) {
	for !s.IsEmpty() {
		last := &s.barriers[len(s.barriers)-1]
		if last.Range.MaximumTraceIndex() <= traceIndexBound {
			break
		}
		if last.Range.Initial().Trace <= traceIndexBound {
			last.Range.TrimDownTraceTo(traceIndexBound)
			break
		}
		s.barriers = s.barriers[:len(s.barriers)-1]
	}
}

// Clone returns a deep-enough independent copy of the section.
func (s *Section) Clone() *Section {
	out := &Section{metric: s.metric, reference: s.reference}
	out.barriers = make([]MinimumDistanceBarrier, len(s.barriers))
	for i := range s.barriers {
		out.barriers[i] = MinimumDistanceBarrier{
			MinimumDistance: s.barriers[i].MinimumDistance,
			Range:           s.barriers[i].Range.Clone(),
		}
	}
	return out
}
