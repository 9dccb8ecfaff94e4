// Package lookahead implements LookAheadJob and its factory: the unit of
// predictive work that asks whether a human segment intersects a robot
// segment somewhere along a predicted mode trace.
package lookahead

import (
	"fmt"

	"github.com/opera-rt/opera/pkg/barrier"
	"github.com/opera-rt/opera/pkg/body"
	"github.com/opera-rt/opera/pkg/history"
	"github.com/opera-rt/opera/pkg/sample"
)

// Identifier names the (human, human segment, robot, robot segment)
// quadruple a job is predicting a collision for. It has a lexicographic
// total order.
type Identifier struct {
	HumanID      string
	HumanSegment int
	RobotID      string
	RobotSegment int
}

// Less implements the total order over identifiers.
func (a Identifier) Less(b Identifier) bool {
	if a.HumanID != b.HumanID {
		return a.HumanID < b.HumanID
	}
	if a.HumanSegment != b.HumanSegment {
		return a.HumanSegment < b.HumanSegment
	}
	if a.RobotID != b.RobotID {
		return a.RobotID < b.RobotID
	}
	return a.RobotSegment < b.RobotSegment
}

func (a Identifier) String() string {
	return fmt.Sprintf("%s[%d]/%s[%d]", a.HumanID, a.HumanSegment, a.RobotID, a.RobotSegment)
}

// PathStep is one (priority, trace_position) pair of a LookAheadJobPath.
type PathStep struct {
	Priority      int
	TracePosition int
}

// Path identifies a job's location inside the branching prediction tree
// for its Identifier: one step per branching point, ordered by strictly
// increasing trace position. The primary job for an (id, timestamp) has
// every priority zero.
type Path []PathStep

// Add appends a step. Trace positions must be strictly increasing.
func (p Path) Add(priority, tracePosition int) Path {
	return append(p, PathStep{Priority: priority, TracePosition: tracePosition})
}

// IsPrimary reports whether every step of the path has priority zero.
func (p Path) IsPrimary() bool {
	for _, s := range p {
		if s.Priority != 0 {
			return false
		}
	}
	return true
}

// RemoveGThan drops trailing steps whose trace position exceeds
// tracePosition.
func (p Path) RemoveGThan(tracePosition int) Path {
	out := p
	for len(out) > 0 && out[len(out)-1].TracePosition > tracePosition {
		out = out[:len(out)-1]
	}
	return out
}

// RemoveLeThan drops steps at or below tracePosition and shifts the
// remainder down by it.
func (p Path) RemoveLeThan(tracePosition int) Path {
	var out Path
	for _, s := range p {
		if s.TracePosition > tracePosition {
			out = append(out, PathStep{Priority: s.Priority, TracePosition: s.TracePosition - tracePosition})
		}
	}
	return out
}

// ReduceBetween keeps the slice of the path between the two trace
// positions, rebasing it onto lower.
func (p Path) ReduceBetween(lower, upper int) Path {
	return p.RemoveGThan(upper).RemoveLeThan(lower)
}

// Clone returns an independent copy of the path.
func (p Path) Clone() Path {
	return append(Path(nil), p...)
}

// Priorities returns the per-step branching priorities, the registry key
// for this path.
func (p Path) Priorities() []int {
	out := make([]int, len(p))
	for i, s := range p {
		out[i] = s.Priority
	}
	return out
}

// Job is a LookAheadJob: an immutable work unit, except that its
// BarrierSequence (present only on the reuse variant) is the processing
// worker's mutable workspace for the duration of one
// EarliestCollisionIndex call.
type Job struct {
	ID              Identifier
	InitialTime     uint64
	SnapshotTime    uint64
	HumanSample     *sample.BodySegmentSample
	PredictionTrace body.ModeTrace
	Path            Path

	// BarrierSequence is nil for the discard variant.
	BarrierSequence *barrier.Sequence
}

// IsReuse reports whether this is the reuse variant.
func (j *Job) IsReuse() bool {
	return j.BarrierSequence != nil
}

// EarliestCollisionIndex scans the robot's recorded samples for the job's
// ending mode over the applicable index window, returning the first index
// at which the human sample intersects (discard variant) or fails to be
// ruled out by the barrier sequence (reuse variant), or -1 if no collision
// is found in the window.
func (j *Job) EarliestCollisionIndex(robotHistory *history.RobotStateHistory) (int, error) {
	snapshot := robotHistory.SnapshotAt(j.SnapshotTime)
	endingMode := j.PredictionTrace.EndingMode()
	allSamples, ok := snapshot.Samples(endingMode)
	if !ok || j.ID.RobotSegment >= len(allSamples) {
		return -1, fmt.Errorf("lookahead: no samples recorded for mode %s", endingMode)
	}
	samples := allSamples[j.ID.RobotSegment]
	if len(samples) == 0 {
		return -1, fmt.Errorf("lookahead: no samples recorded for mode %s", endingMode)
	}

	traceIndex := j.PredictionTrace.Size() - 1
	lower := 0
	upper := len(samples) - 1

	if j.BarrierSequence != nil && !j.BarrierSequence.IsEmpty() &&
		j.BarrierSequence.LastUpperTraceIndex() == traceIndex {
		if last, ok := j.BarrierSequence.LastBarrier(); ok {
			lower = last.Range.MaximumSampleIndex() + 1
		}
	}

	// When the trace has not moved past its starting mode, the scan is
	// bounded by the sample index the robot occupied at the job's initial
	// time: forward of it for a single-mode trace, strictly before it when
	// the trace has come back around.
	sameAsStart, err := endingMode.Equal(j.PredictionTrace.StartingMode())
	if err != nil {
		return -1, err
	}
	if sameAsStart {
		bound, err := snapshot.CheckedSampleIndex(endingMode, j.InitialTime)
		if err != nil {
			return -1, err
		}
		if j.PredictionTrace.Size() == 1 {
			if bound > lower {
				lower = bound
			}
		} else {
			if bound == 0 {
				return -1, nil
			}
			upper = bound - 1
		}
	}

	for i := lower; i <= upper; i++ {
		robotSample := samples[i]
		if robotSample.IsEmpty() {
			continue
		}
		if j.BarrierSequence == nil {
			if sample.Intersects(j.HumanSample, &robotSample) {
				return i, nil
			}
			continue
		}
		if !j.BarrierSequence.CheckAndUpdate(j.HumanSample, &robotSample, barrier.TraceSampleIndex{Trace: traceIndex, Sample: i}) {
			return i, nil
		}
	}
	return -1, nil
}
