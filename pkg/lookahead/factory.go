package lookahead

import (
	"github.com/opera-rt/opera/pkg/barrier"
	"github.com/opera-rt/opera/pkg/body"
	"github.com/opera-rt/opera/pkg/history"
	"github.com/opera-rt/opera/pkg/jobregistry"
	"github.com/opera-rt/opera/pkg/sample"
)

// AwakeningResult classifies the outcome of re-evaluating a sleeping job
// against a new triggering event.
type AwakeningResult int

// The awakening outcomes.
const (
	// Unaffected means the event does not postdate the job's initial time
	// and changes nothing.
	Unaffected AwakeningResult = iota
	// Uncomputable means the new human sample is empty: the job is carried
	// forward to the new time with its prior human sample and trace, but
	// cannot be processed yet.
	Uncomputable
	// Different means the job was genuinely renewed with an updated
	// initial time and possibly a reduced trace and barrier sequence.
	Different
	// Completed means the renewed job's barrier coverage already spans its
	// whole trace and no further modes can follow; nothing is left to
	// check.
	Completed
)

func (r AwakeningResult) String() string {
	switch r {
	case Unaffected:
		return "unaffected"
	case Uncomputable:
		return "uncomputable"
	case Different:
		return "different"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Equivalence selects how aggressively Awaken reuses prior state.
type Equivalence int

// The two equivalence levels.
const (
	// Strong re-enforces the snapshot time to the awakening time and further
	// restricts the reusable trace interval, trading reuse for freshness.
	Strong Equivalence = iota
	// Weak keeps the old snapshot time, giving more reuse at the cost of
	// tracking an older view.
	Weak
)

// Awakened pairs a renewed job with its AwakeningResult.
type Awakened struct {
	Job    *Job
	Result AwakeningResult
}

// Factory builds LookAheadJob values. A discard factory never attaches a
// BarrierSequence; a reuse factory attaches one configured with its
// section kind and update policy, and owns the job registry that
// deduplicates awoken job paths.
type Factory struct {
	reuse       bool
	kind        barrier.Kind
	policy      barrier.UpdatePolicy
	equivalence Equivalence
	registry    *jobregistry.Registry

	// weakInvalidatesOnNewSamples, when set on a Weak-equivalence factory,
	// makes Awaken drop the cached barrier sequence whenever the target
	// mode has received new samples since the job's snapshot time.
	weakInvalidatesOnNewSamples bool
}

// NewDiscardFactory returns a factory producing the discard job variant.
func NewDiscardFactory() *Factory {
	return &Factory{reuse: false}
}

// NewReuseFactory returns a factory producing the reuse job variant, whose
// jobs carry a BarrierSequence built with kind/policy and whose awakenings
// follow the given equivalence.
func NewReuseFactory(kind barrier.Kind, policy barrier.UpdatePolicy, equivalence Equivalence) *Factory {
	return &Factory{
		reuse:       true,
		kind:        kind,
		policy:      policy,
		equivalence: equivalence,
		registry:    jobregistry.New(),
	}
}

// SetWeakInvalidatesOnNewSamples configures the weak-equivalence
// invalidation toggle.
func (f *Factory) SetWeakInvalidatesOnNewSamples(v bool) {
	f.weakInvalidatesOnNewSamples = v
}

// IsReuse reports whether this factory produces the reuse variant.
func (f *Factory) IsReuse() bool {
	return f.reuse
}

// HasRegistered reports whether a job with this path was already produced
// for (timestamp, id). Always false for the discard variant, which does
// not deduplicate.
func (f *Factory) HasRegistered(timestamp uint64, id Identifier, path Path) bool {
	if !f.reuse {
		return false
	}
	return f.registry.HasRegistered(timestamp, id.String(), path.Priorities())
}

// CreateNew builds a fresh job at an initial mode, registering its path
// under the reuse variant.
func (f *Factory) CreateNew(id Identifier, initialTime uint64, humanSample *sample.BodySegmentSample, trace body.ModeTrace, path Path) *Job {
	j := &Job{
		ID:              id,
		InitialTime:     initialTime,
		SnapshotTime:    initialTime,
		HumanSample:     humanSample,
		PredictionTrace: trace,
		Path:            path,
	}
	if f.reuse {
		f.registry.TryRegister(initialTime, id.String(), path.Priorities())
		j.BarrierSequence = barrier.NewSequence(f.kind, f.policy)
	}
	return j
}

func (f *Factory) createFromExisting(job *Job, trace body.ModeTrace, path Path) *Job {
	next := &Job{
		ID:              job.ID,
		InitialTime:     job.InitialTime,
		SnapshotTime:    job.SnapshotTime,
		HumanSample:     job.HumanSample,
		PredictionTrace: trace,
		Path:            path,
	}
	if job.BarrierSequence != nil {
		next.BarrierSequence = job.BarrierSequence.Clone()
	}
	return next
}

// CreateNext computes NextModes on the merge of the robot history's
// recorded trace (snapshot at the job's initial time) with the job's own
// prediction trace, and returns one successor per candidate next mode.
// When more than one successor exists, each path is extended with its
// branching priority. Returns nil once the job's prediction trace has
// looped.
func (f *Factory) CreateNext(job *Job, robotHistory *history.RobotStateHistory) ([]*Job, error) {
	looped, err := job.PredictionTrace.HasLooped()
	if err != nil {
		return nil, err
	}
	if looped {
		return nil, nil
	}

	// The snapshot at the initial time keeps the merge aligned with what
	// the job has been predicting from.
	histTrace := robotHistory.SnapshotAt(job.InitialTime).ModeTrace()
	merged := body.Merge(histTrace, job.PredictionTrace)
	nexts, err := merged.NextModes()
	if err != nil {
		return nil, err
	}

	successors := make([]*Job, 0, len(nexts))
	for i, n := range nexts {
		trace := job.PredictionTrace.Clone()
		trace.PushBack(n.Mode, n.Probability)
		path := job.Path.Clone()
		if len(nexts) > 1 {
			path = path.Add(i, trace.Size()-1)
		}
		successors = append(successors, f.createFromExisting(job, trace, path))
	}
	return successors, nil
}

// Awaken re-evaluates a sleeping job against a new triggering event: a
// human sample observed at time t, or nil when the trigger was a robot
// state with no accompanying human update.
func (f *Factory) Awaken(job *Job, t uint64, humanSample *sample.BodySegmentSample, robotHistory *history.RobotStateHistory) ([]Awakened, error) {
	if t <= job.InitialTime {
		return []Awakened{{Job: job, Result: Unaffected}}, nil
	}
	if f.reuse {
		return f.awakenReuse(job, t, humanSample, robotHistory)
	}
	return f.awakenDiscard(job, t, humanSample, robotHistory)
}

func (f *Factory) awakenDiscard(job *Job, t uint64, humanSample *sample.BodySegmentSample, robotHistory *history.RobotStateHistory) ([]Awakened, error) {
	if humanSample == nil || humanSample.IsEmpty() {
		rebuilt := &Job{
			ID:              job.ID,
			InitialTime:     t,
			SnapshotTime:    t,
			HumanSample:     job.HumanSample,
			PredictionTrace: job.PredictionTrace.Clone(),
			Path:            job.Path.Clone(),
		}
		return []Awakened{{Job: rebuilt, Result: Uncomputable}}, nil
	}
	if !job.Path.IsPrimary() {
		return nil, nil
	}
	modeToStart, ok := robotHistory.ModeAt(t)
	if !ok {
		return nil, nil
	}
	fresh := &Job{
		ID:              job.ID,
		InitialTime:     t,
		SnapshotTime:    t,
		HumanSample:     humanSample,
		PredictionTrace: body.NewModeTrace(modeToStart),
	}
	return []Awakened{{Job: fresh, Result: Different}}, nil
}

func (f *Factory) awakenReuse(job *Job, t uint64, humanSample *sample.BodySegmentSample, robotHistory *history.RobotStateHistory) ([]Awakened, error) {
	modeToStart, hasMode := robotHistory.ModeAt(t)
	if !hasMode {
		return nil, nil
	}

	trace := job.PredictionTrace.Clone()
	path := job.Path.Clone()
	seq := job.BarrierSequence.Clone()
	snapshotTime := job.SnapshotTime
	if f.equivalence == Strong {
		snapshotTime = t
	}

	if humanSample == nil || humanSample.IsEmpty() {
		f.registry.TryRegister(t, job.ID.String(), path.Priorities())
		rebuilt := &Job{
			ID:              job.ID,
			InitialTime:     t,
			SnapshotTime:    snapshotTime,
			HumanSample:     job.HumanSample,
			PredictionTrace: trace,
			Path:            path,
			BarrierSequence: seq,
		}
		return []Awakened{{Job: rebuilt, Result: Uncomputable}}, nil
	}

	if f.equivalence == Weak && f.weakInvalidatesOnNewSamples {
		if grew, err := modeGrew(robotHistory, job.SnapshotTime, t, trace.EndingMode()); err == nil && grew {
			seq.Clear()
		}
	}

	lower, err := trace.ForwardIndex(modeToStart)
	if err != nil {
		return nil, err
	}
	if lower < 0 {
		trace = body.NewModeTrace(modeToStart)
		seq = barrier.NewSequence(f.kind, f.policy)
		path = nil
		snapshotTime = t
	} else {
		resetUpper := trace.Size() - 1
		if f.equivalence == Strong && lower > 0 {
			// Looping modes before the restart point have had their sample
			// buffers remade since the job slept; anything at or past their
			// recurrence cannot be reused.
			for i := 0; i < lower; i++ {
				back, err := trace.BackwardIndex(trace.At(i).Mode)
				if err != nil {
					return nil, err
				}
				if back > i && back-1 < resetUpper {
					resetUpper = back - 1
				}
			}
		}
		snapshot := robotHistory.SnapshotAt(snapshotTime)
		startSampleIndex, err := snapshot.CheckedSampleIndex(modeToStart, t)
		if err != nil {
			return nil, err
		}
		seq.Reset(humanSample, lower, resetUpper, startSampleIndex)
		if seq.IsEmpty() {
			trace = body.NewModeTrace(modeToStart)
			path = nil
			snapshotTime = t
		} else {
			upper := lower + seq.LastUpperTraceIndex()
			modeToReuse := trace.At(upper).Mode
			if samples, ok := snapshot.Samples(modeToReuse); ok && job.ID.RobotSegment < len(samples) {
				if last, found := seq.LastBarrier(); found && last.Range.MaximumSampleIndex() == len(samples[job.ID.RobotSegment])-1 {
					upper++
				}
			}

			if upper == trace.Size() {
				// The whole remaining trace is already covered; extend it.
				trace = trace.ReduceBetween(lower, upper-1)
				path = path.ReduceBetween(lower, upper)
				renewed := &Job{
					ID:              job.ID,
					InitialTime:     t,
					SnapshotTime:    snapshotTime,
					HumanSample:     humanSample,
					PredictionTrace: trace,
					Path:            path,
					BarrierSequence: seq,
				}
				successors, err := f.CreateNext(renewed, robotHistory)
				if err != nil {
					return nil, err
				}
				if len(successors) == 0 {
					return []Awakened{{Job: renewed, Result: Completed}}, nil
				}
				var out []Awakened
				for _, next := range successors {
					if f.registry.TryRegister(t, job.ID.String(), next.Path.Priorities()) {
						out = append(out, Awakened{Job: next, Result: Different})
					}
				}
				return out, nil
			}
			trace = trace.ReduceBetween(lower, upper)
			path = path.ReduceBetween(lower, upper)
		}
	}

	if !f.registry.TryRegister(t, job.ID.String(), path.Priorities()) {
		return nil, nil
	}
	renewed := &Job{
		ID:              job.ID,
		InitialTime:     t,
		SnapshotTime:    snapshotTime,
		HumanSample:     humanSample,
		PredictionTrace: trace,
		Path:            path,
		BarrierSequence: seq,
	}
	return []Awakened{{Job: renewed, Result: Different}}, nil
}

// modeGrew reports whether mode's flushed sample store gained a version
// between oldTime and newTime.
func modeGrew(robotHistory *history.RobotStateHistory, oldTime, newTime uint64, mode body.Mode) (bool, error) {
	oldSize := robotHistory.SnapshotAt(oldTime).MaxNumSamples(mode)
	newSize := robotHistory.SnapshotAt(newTime).MaxNumSamples(mode)
	return newSize > oldSize, nil
}
