package barrier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opera-rt/opera/pkg/geometry"
	"github.com/opera-rt/opera/pkg/sample"
)

func seg(thickness float64, hx, hy, hz, tx, ty, tz float64) *sample.BodySegmentSample {
	s := sample.NewEmpty(thickness)
	h := geometry.Point{X: hx, Y: hy, Z: hz}
	t := geometry.Point{X: tx, Y: ty, Z: tz}
	s.Update([]geometry.Point{h}, []geometry.Point{t})
	return &s
}

func TestTraceSampleRangeExtendAndScale(t *testing.T) {
	r := NewTraceSampleRange(TraceSampleIndex{Trace: 0, Sample: 2})
	r.Update(5)
	assert.Equal(t, 0, r.MaximumTraceIndex())
	assert.Equal(t, 5, r.MaximumSampleIndex())

	r.IncreaseTraceIndex()
	assert.Equal(t, 1, r.MaximumTraceIndex())
	assert.Equal(t, 0, r.MaximumSampleIndex())

	r.UpdateWith(TraceSampleIndex{Trace: 3, Sample: 4})
	assert.Equal(t, 3, r.MaximumTraceIndex())
	assert.Equal(t, 0, r.MaximumSampleIndex())
	r.Update(4)
	assert.Equal(t, 4, r.MaximumSampleIndex())

	r.ScaleDownTraceOf(2)
	assert.Equal(t, 1, r.MaximumTraceIndex())
	assert.Equal(t, TraceSampleIndex{}, r.Initial())

	r.TrimDownTraceTo(0)
	assert.False(t, r.IsEmpty())
	assert.Equal(t, 0, r.MaximumTraceIndex())
}

func TestTraceSampleRangeScaleDownPastMaximumEmpties(t *testing.T) {
	r := NewTraceSampleRange(TraceSampleIndex{Trace: 1, Sample: 3})
	r.ScaleDownTraceOf(5)
	assert.True(t, r.IsEmpty())
}

func TestSectionBarriersStrictlyDecreasing(t *testing.T) {
	human := seg(0.1, 0, 0, 0, 1, 0, 0)
	sec := NewSection(CapsuleMetric{}, human)

	robotFar := seg(0.1, 10, 10, 10, 11, 10, 10)
	robotNear := seg(0.1, 0, 1, 0, 1, 1, 0)
	robotTouch := seg(0.1, 0, 0, 0, 1, 0, 0)

	require.True(t, sec.CheckAndUpdate(robotFar, TraceSampleIndex{Sample: 0}))
	require.True(t, sec.CheckAndUpdate(robotNear, TraceSampleIndex{Sample: 1}))
	require.False(t, sec.CheckAndUpdate(robotTouch, TraceSampleIndex{Sample: 2}))

	barriers := sec.Barriers()
	require.Len(t, barriers, 3)
	for i := 1; i < len(barriers); i++ {
		assert.Less(t, barriers[i].MinimumDistance, barriers[i-1].MinimumDistance)
	}
	last, ok := sec.LastBarrier()
	require.True(t, ok)
	assert.True(t, last.IsCollision())

	// Once collision is recorded, further checks short-circuit to false.
	assert.False(t, sec.CheckAndUpdate(robotFar, TraceSampleIndex{Sample: 3}))
}

func TestSectionNonDecreasingDistanceExtendsRange(t *testing.T) {
	human := seg(0.1, 0, 0, 0, 1, 0, 0)
	sec := NewSection(CapsuleMetric{}, human)

	robot := seg(0.1, 5, 0, 0, 6, 0, 0)
	require.True(t, sec.CheckAndUpdate(robot, TraceSampleIndex{Sample: 0}))
	require.True(t, sec.CheckAndUpdate(robot, TraceSampleIndex{Sample: 1}))
	require.True(t, sec.CheckAndUpdate(robot, TraceSampleIndex{Trace: 1, Sample: 0}))

	require.Equal(t, 1, sec.Size())
	last, _ := sec.LastBarrier()
	assert.Equal(t, 1, last.Range.MaximumTraceIndex())
}

func TestSectionResetDropsInvalidatedBarriers(t *testing.T) {
	human := seg(0.1, 0, 0, 0, 1, 0, 0)
	sec := NewSection(SphereMetric{}, human)

	sec.CheckAndUpdate(seg(0.1, 5, 5, 5, 6, 5, 5), TraceSampleIndex{Trace: 0, Sample: 0})
	sec.CheckAndUpdate(seg(0.1, 2, 2, 2, 3, 2, 2), TraceSampleIndex{Trace: 1, Sample: 0})

	// A barely moved human keeps the recorded barriers valid.
	near := seg(0.1, 0, 0, 0.01, 1, 0, 0.01)
	sec.Reset(near, 0, 5, 0)
	assert.False(t, sec.IsEmpty())

	// A large jump invalidates even the first barrier.
	far := seg(0.1, 50, 50, 50, 51, 50, 50)
	sec.Reset(far, 0, 5, 0)
	assert.True(t, sec.IsEmpty())
}

func TestSequenceKeepOneNeverAddsSections(t *testing.T) {
	seq := NewSequence(Capsule, KeepOne)
	h1 := seg(0.1, 0, 0, 0, 1, 0, 0)
	h2 := seg(0.1, 0, 0, 1, 1, 0, 1)
	robot := seg(0.1, 10, 10, 10, 11, 10, 10)

	seq.CheckAndUpdate(h1, robot, TraceSampleIndex{Sample: 0})
	seq.CheckAndUpdate(h2, robot, TraceSampleIndex{Sample: 1})
	assert.Len(t, seq.Sections(), 1)
	assert.Same(t, h1, seq.Sections()[0].HumanSample())
}

func TestSequenceAddWhenDifferentOpensNewSection(t *testing.T) {
	seq := NewSequence(Capsule, AddWhenDifferent)
	h1 := seg(0.1, 0, 0, 0, 1, 0, 0)
	h2 := seg(0.1, 0, 0, 1, 1, 0, 1)
	robot := seg(0.1, 10, 10, 10, 11, 10, 10)

	seq.CheckAndUpdate(h1, robot, TraceSampleIndex{Sample: 0})
	seq.CheckAndUpdate(h2, robot, TraceSampleIndex{Sample: 1})
	assert.Len(t, seq.Sections(), 2)
}

func TestSequenceComparesHumanSamplesByValue(t *testing.T) {
	// Every inbound message materialises a fresh sample; an unmoved human
	// arrives as a distinct pointer with identical contents and must not
	// reopen anything.
	robot := seg(0.1, 10, 10, 10, 11, 10, 10)

	seq := NewSequence(Capsule, AddWhenDifferent)
	seq.CheckAndUpdate(seg(0.1, 0, 0, 0, 1, 0, 0), robot, TraceSampleIndex{Sample: 0})
	seq.CheckAndUpdate(seg(0.1, 0, 0, 0, 1, 0, 0), robot, TraceSampleIndex{Sample: 1})
	assert.Len(t, seq.Sections(), 1)

	seq = NewSequence(Capsule, AddWhenNecessary)
	seq.CheckAndUpdate(seg(0.1, 0, 0, 0, 1, 0, 0), robot, TraceSampleIndex{Sample: 0})
	seq.CheckAndUpdate(seg(0.1, 0, 0, 0, 1, 0, 0), robot, TraceSampleIndex{Sample: 1})
	assert.Len(t, seq.Sections(), 1)
	assert.Equal(t, 1, seq.NumBarriers())
}

func TestSequenceAddWhenNecessaryReopensOnForeignCollision(t *testing.T) {
	seq := NewSequence(Capsule, AddWhenNecessary)
	h1 := seg(0.1, 0, 0, 0, 1, 0, 0)
	robotFar := seg(0.1, 10, 10, 10, 11, 10, 10)
	seq.CheckAndUpdate(h1, robotFar, TraceSampleIndex{Sample: 0})
	require.Len(t, seq.Sections(), 1)

	// A robot sample touching h1 would close the section, but the human
	// sample has changed: the collision barrier is popped and a fresh
	// section opened for the new human.
	h2 := seg(0.1, 20, 20, 20, 21, 20, 20)
	robotTouchingH1 := seg(0.1, 0, 0, 0, 1, 0, 0)
	ok := seq.CheckAndUpdate(h2, robotTouchingH1, TraceSampleIndex{Sample: 1})
	assert.True(t, ok)
	assert.Len(t, seq.Sections(), 2)
	assert.False(t, seq.ReachesCollision())
}

func TestSequenceClonesIndependently(t *testing.T) {
	seq := NewSequence(Sphere, KeepOne)
	human := seg(0.1, 0, 0, 0, 1, 0, 0)
	robot := seg(0.1, 10, 10, 10, 11, 10, 10)
	seq.CheckAndUpdate(human, robot, TraceSampleIndex{Sample: 0})

	clone := seq.Clone()
	nearer := seg(0.1, 5, 5, 5, 6, 5, 5)
	clone.CheckAndUpdate(human, nearer, TraceSampleIndex{Sample: 1})

	assert.Equal(t, 1, seq.NumBarriers())
	assert.Equal(t, 2, clone.NumBarriers())
}
