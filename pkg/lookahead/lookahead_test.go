package lookahead

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opera-rt/opera/pkg/barrier"
	"github.com/opera-rt/opera/pkg/body"
	"github.com/opera-rt/opera/pkg/geometry"
	"github.com/opera-rt/opera/pkg/history"
	"github.com/opera-rt/opera/pkg/sample"
)

func newRobotHistory(t *testing.T, freq int) *history.RobotStateHistory {
	t.Helper()
	b, err := body.NewBody("r0", []string{"a", "b"}, [][2]string{{"a", "b"}}, []float64{0.1})
	require.NoError(t, err)
	robot, err := body.NewRobot(b, freq)
	require.NoError(t, err)
	return history.NewRobotStateHistory(robot)
}

func modeNamed(name string) body.Mode {
	return body.NewMode(map[string]string{"s": name})
}

// kp builds per-keypoint observations for the two-keypoint test robot.
func kp(ax, ay, az, bx, by, bz float64) [][]geometry.Point {
	return [][]geometry.Point{
		{{X: ax, Y: ay, Z: az}},
		{{X: bx, Y: by, Z: bz}},
	}
}

func humanSample(hx, hy, hz, tx, ty, tz float64) *sample.BodySegmentSample {
	s := sample.NewEmpty(0.1)
	s.Update([]geometry.Point{{X: hx, Y: hy, Z: hz}}, []geometry.Point{{X: tx, Y: ty, Z: tz}})
	return &s
}

// seedHistory drives the robot through contract (twice), endup, and back
// into contract, so contract and endup both have flushed samples.
func seedHistory(t *testing.T, h *history.RobotStateHistory) (contract, endup body.Mode) {
	t.Helper()
	contract = modeNamed("contract")
	endup = modeNamed("endup")
	require.NoError(t, h.Acquire(contract, kp(0, 0, 0, 1, 0, 0), 0))
	require.NoError(t, h.Acquire(contract, kp(0, 0, 0, 1, 0, 0), 1))
	require.NoError(t, h.Acquire(endup, kp(0, 0, 5, 1, 0, 5), 2))
	require.NoError(t, h.Acquire(contract, kp(0, 0, 0, 1, 0, 0), 3))
	return contract, endup
}

func TestPathReduceBetween(t *testing.T) {
	p := Path{{Priority: 1, TracePosition: 1}, {Priority: 0, TracePosition: 2}, {Priority: 2, TracePosition: 4}}

	reduced := p.ReduceBetween(1, 3)
	require.Len(t, reduced, 1)
	assert.Equal(t, PathStep{Priority: 0, TracePosition: 1}, reduced[0])

	assert.True(t, Path{{Priority: 0, TracePosition: 1}}.IsPrimary())
	assert.False(t, Path{{Priority: 1, TracePosition: 1}}.IsPrimary())
}

func TestEarliestCollisionIndexDiscardFindsIntersection(t *testing.T) {
	h := newRobotHistory(t, 1000)
	contract, _ := seedHistory(t, h)

	f := NewDiscardFactory()
	job := f.CreateNew(
		Identifier{HumanID: "h0", HumanSegment: 0, RobotID: "r0", RobotSegment: 0},
		3, humanSample(0, 0.1, 0, 1, 0.1, 0), body.NewModeTrace(contract), nil)

	idx, err := job.EarliestCollisionIndex(h)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestEarliestCollisionIndexDiscardNoIntersection(t *testing.T) {
	h := newRobotHistory(t, 1000)
	contract, _ := seedHistory(t, h)

	f := NewDiscardFactory()
	job := f.CreateNew(
		Identifier{HumanID: "h0", HumanSegment: 0, RobotID: "r0", RobotSegment: 0},
		3, humanSample(50, 50, 50, 51, 50, 50), body.NewModeTrace(contract), nil)

	idx, err := job.EarliestCollisionIndex(h)
	require.NoError(t, err)
	assert.Equal(t, -1, idx)
}

func TestEarliestCollisionIndexReuseSkipsCoveredSamples(t *testing.T) {
	h := newRobotHistory(t, 1000)
	contract, _ := seedHistory(t, h)

	f := NewReuseFactory(barrier.Capsule, barrier.KeepOne, Strong)
	job := f.CreateNew(
		Identifier{HumanID: "h0", HumanSegment: 0, RobotID: "r0", RobotSegment: 0},
		3, humanSample(50, 50, 50, 51, 50, 50), body.NewModeTrace(contract), nil)

	idx, err := job.EarliestCollisionIndex(h)
	require.NoError(t, err)
	assert.Equal(t, -1, idx)

	// The barrier sequence now covers both contract samples; a second scan
	// starts past them and checks nothing.
	require.False(t, job.BarrierSequence.IsEmpty())
	last, ok := job.BarrierSequence.LastBarrier()
	require.True(t, ok)
	assert.Equal(t, 1, last.Range.MaximumSampleIndex())

	idx, err = job.EarliestCollisionIndex(h)
	require.NoError(t, err)
	assert.Equal(t, -1, idx)
}

func TestFactoryCreateNextStopsOnLoop(t *testing.T) {
	f := NewDiscardFactory()
	h := newRobotHistory(t, 1000)
	modeA := modeNamed("a")
	modeB := modeNamed("b")

	trace := body.NewModeTrace(modeA)
	trace.PushBack(modeB, 1)
	trace.PushBack(modeA, 1)

	job := &Job{
		ID:              Identifier{HumanID: "h0", RobotID: "r0"},
		PredictionTrace: trace,
	}
	successors, err := f.CreateNext(job, h)
	require.NoError(t, err)
	require.Empty(t, successors)
}

func TestFactoryCreateNextBranchesByHistoricalFrequency(t *testing.T) {
	h := newRobotHistory(t, 1000)
	c := modeNamed("contract")
	e := modeNamed("endup")
	x := modeNamed("xpand")

	// contract has exited twice into endup and once into xpand.
	require.NoError(t, h.Acquire(c, kp(0, 0, 0, 1, 0, 0), 0))
	require.NoError(t, h.Acquire(e, kp(0, 0, 5, 1, 0, 5), 1))
	require.NoError(t, h.Acquire(c, kp(0, 0, 0, 1, 0, 0), 2))
	require.NoError(t, h.Acquire(e, kp(0, 0, 5, 1, 0, 5), 3))
	require.NoError(t, h.Acquire(c, kp(0, 0, 0, 1, 0, 0), 4))
	require.NoError(t, h.Acquire(x, kp(0, 0, -5, 1, 0, -5), 5))
	require.NoError(t, h.Acquire(c, kp(0, 0, 0, 1, 0, 0), 6))

	f := NewDiscardFactory()
	job := f.CreateNew(
		Identifier{HumanID: "h0", RobotID: "r0"},
		6, humanSample(50, 50, 50, 51, 50, 50), body.NewModeTrace(c), nil)

	successors, err := f.CreateNext(job, h)
	require.NoError(t, err)
	require.Len(t, successors, 2)

	first := successors[0].PredictionTrace
	second := successors[1].PredictionTrace
	eq, err := first.EndingMode().Equal(e)
	require.NoError(t, err)
	assert.True(t, eq)
	assert.InDelta(t, 2.0/3.0, first.Likelihood(), 1e-9)
	eq, err = second.EndingMode().Equal(x)
	require.NoError(t, err)
	assert.True(t, eq)
	assert.InDelta(t, 1.0/3.0, second.Likelihood(), 1e-9)

	// Branching extends each path with its priority.
	assert.Equal(t, Path{{Priority: 0, TracePosition: 1}}, successors[0].Path)
	assert.Equal(t, Path{{Priority: 1, TracePosition: 1}}, successors[1].Path)
}

func TestAwakenUnaffectedOnSameInitialTime(t *testing.T) {
	f := NewReuseFactory(barrier.Capsule, barrier.KeepOne, Weak)
	h := newRobotHistory(t, 1000)
	contract, _ := seedHistory(t, h)

	job := f.CreateNew(Identifier{HumanID: "h0", RobotID: "r0"}, 3, humanSample(0, 0, 0, 1, 0, 0), body.NewModeTrace(contract), nil)

	results, err := f.Awaken(job, 3, job.HumanSample, h)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, Unaffected, results[0].Result)
	require.Same(t, job, results[0].Job)
	require.Same(t, job.BarrierSequence, results[0].Job.BarrierSequence)
}

func TestAwakenUncomputableOnEmptyHumanSample(t *testing.T) {
	f := NewReuseFactory(barrier.Capsule, barrier.KeepOne, Weak)
	h := newRobotHistory(t, 1000)
	contract, _ := seedHistory(t, h)

	job := f.CreateNew(Identifier{HumanID: "h0", RobotID: "r0"}, 3, humanSample(0, 0, 0, 1, 0, 0), body.NewModeTrace(contract), nil)

	empty := sample.NewEmpty(0.1)
	results, err := f.Awaken(job, 4, &empty, h)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, Uncomputable, results[0].Result)
	assert.Equal(t, uint64(4), results[0].Job.InitialTime)
	// The prior human sample is carried forward until a usable one
	// arrives.
	assert.Same(t, job.HumanSample, results[0].Job.HumanSample)
}

func TestAwakenDifferentRenewsJob(t *testing.T) {
	f := NewReuseFactory(barrier.Capsule, barrier.KeepOne, Strong)
	h := newRobotHistory(t, 1000)
	contract, _ := seedHistory(t, h)

	job := f.CreateNew(Identifier{HumanID: "h0", RobotID: "r0"}, 3, humanSample(0, 0, 0, 1, 0, 0), body.NewModeTrace(contract), nil)

	newHuman := humanSample(2, 2, 2, 3, 2, 2)
	results, err := f.Awaken(job, 4, newHuman, h)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, Different, results[0].Result)
	assert.Equal(t, uint64(4), results[0].Job.InitialTime)
	assert.Equal(t, uint64(4), results[0].Job.SnapshotTime)
	assert.Same(t, newHuman, results[0].Job.HumanSample)
}

func TestAwakenDiscardNonPrimaryIsDropped(t *testing.T) {
	f := NewDiscardFactory()
	h := newRobotHistory(t, 1000)
	contract, _ := seedHistory(t, h)

	job := &Job{
		ID:              Identifier{HumanID: "h0", RobotID: "r0"},
		InitialTime:     3,
		SnapshotTime:    3,
		HumanSample:     humanSample(0, 0, 0, 1, 0, 0),
		PredictionTrace: body.NewModeTrace(contract),
		Path:            Path{{Priority: 1, TracePosition: 1}},
	}
	results, err := f.Awaken(job, 4, humanSample(0, 0, 0, 1, 0, 0), h)
	require.NoError(t, err)
	assert.Empty(t, results)
}
