package barrier

import "github.com/opera-rt/opera/pkg/sample"

// Kind selects which Metric a Sequence's sections use.
type Kind int

// The two section kinds.
const (
	Sphere Kind = iota
	Capsule
)

func (k Kind) metric() Metric {
	if k == Capsule {
		return CapsuleMetric{}
	}
	return SphereMetric{}
}

// UpdatePolicy selects how a Sequence reacts to a human-sample change
// across successive CheckAndUpdate calls. The three policies are a small
// closed set, represented as a Go enum rather than an interface hierarchy.
type UpdatePolicy int

const (
	// KeepOne maintains a single section for the sequence's lifetime; a
	// changed human sample is only evaluated against the robot, never
	// recorded as a new reference.
	KeepOne UpdatePolicy = iota
	// AddWhenNecessary opens a new section only when continuing the
	// current one would otherwise record a collision found against a
	// different human sample.
	AddWhenNecessary
	// AddWhenDifferent opens a new section on every human-sample change.
	AddWhenDifferent
)

// Sequence is a BarrierSequence: an ordered list of sections sharing a
// section-kind factory and an update policy.
type Sequence struct {
	kind     Kind
	policy   UpdatePolicy
	sections []*Section
}

// NewSequence returns an empty sequence using the given section kind and
// update policy.
func NewSequence(kind Kind, policy UpdatePolicy) *Sequence {
	return &Sequence{kind: kind, policy: policy}
}

// Sections returns a read-only view of the sequence's sections, oldest
// first.
func (seq *Sequence) Sections() []*Section {
	return seq.sections
}

// IsEmpty reports whether the sequence has no sections.
func (seq *Sequence) IsEmpty() bool {
	return len(seq.sections) == 0
}

// NumBarriers returns the total barrier count across every section.
func (seq *Sequence) NumBarriers() int {
	n := 0
	for _, s := range seq.sections {
		n += s.Size()
	}
	return n
}

// Clear drops every section.
func (seq *Sequence) Clear() {
	seq.sections = nil
}

func (seq *Sequence) lastSection() *Section {
	return seq.sections[len(seq.sections)-1]
}

// LastBarrier returns the last barrier of the last section, if any.
func (seq *Sequence) LastBarrier() (MinimumDistanceBarrier, bool) {
	if seq.IsEmpty() {
		return MinimumDistanceBarrier{}, false
	}
	return seq.lastSection().LastBarrier()
}

// LastUpperTraceIndex returns the maximum trace index covered by the last
// section's last barrier, or 0 on an empty sequence.
func (seq *Sequence) LastUpperTraceIndex() int {
	if seq.IsEmpty() {
		return 0
	}
	return seq.lastSection().LastUpperTraceIndex()
}

// ReachesCollision reports whether the last section already records a
// collision.
func (seq *Sequence) ReachesCollision() bool {
	if seq.IsEmpty() {
		return false
	}
	return seq.lastSection().ReachesCollision()
}

func (seq *Sequence) addFrom(human *sample.BodySegmentSample) {
	seq.sections = append(seq.sections, NewSection(seq.kind.metric(), human))
}

// CheckAndUpdate folds a new robot sample observation into the sequence
// according to the configured UpdatePolicy, returning whether no collision
// is implied for the new human sample (i.e. the caller should keep
// scanning).
func (seq *Sequence) CheckAndUpdate(human, robotSample *sample.BodySegmentSample, index TraceSampleIndex) bool {
	if seq.IsEmpty() {
		seq.addFrom(human)
	}
	result := seq.checkAndUpdateSection(human, robotSample, index)
	if seq.lastSection().IsEmpty() {
		seq.sections = seq.sections[:len(seq.sections)-1]
	}
	return result
}

// sameSample compares two human samples by value: fresh sample pointers
// arrive with every inbound message, so pointer identity says nothing
// about whether the human actually moved.
func sameSample(a, b *sample.BodySegmentSample) bool {
	return a == b || (a != nil && b != nil && *a == *b)
}

func (seq *Sequence) checkAndUpdateSection(human, robotSample *sample.BodySegmentSample, index TraceSampleIndex) bool {
	active := seq.lastSection()
	if sameSample(active.HumanSample(), human) {
		return active.CheckAndUpdate(robotSample, index)
	}
	switch seq.policy {
	case AddWhenDifferent:
		if !seq.ReachesCollision() {
			seq.addFrom(human)
			return seq.lastSection().CheckAndUpdate(robotSample, index)
		}
		return active.MinimumHumanRobotDistance(human, robotSample) > 0

	case AddWhenNecessary:
		if !seq.ReachesCollision() && !active.CheckAndUpdate(robotSample, index) {
			active.RemoveLastBarrier()
			seq.addFrom(human)
			return seq.lastSection().CheckAndUpdate(robotSample, index)
		}
		return active.MinimumHumanRobotDistance(human, robotSample) > 0

	default: // KeepOne
		result := !active.AreColliding(human, robotSample)
		active.CheckAndUpdate(robotSample, index)
		return result
	}
}

// Reset propagates Reset to each section in order; any section that
// becomes empty is dropped, and propagation stops at the first section
// that was actually truncated.
func (seq *Sequence) Reset(human *sample.BodySegmentSample, loTrace, hiTrace, sampleIndex int) {
	var kept []*Section
	for _, sec := range seq.sections {
		before := sec.Size()
		sec.Reset(human, loTrace, hiTrace, sampleIndex)
		if !sec.IsEmpty() {
			kept = append(kept, sec)
		}
		if sec.Size() < before {
			break
		}
	}
	seq.sections = kept
}

// Clone returns a deep-enough independent copy of the sequence, used when
// a reuse job spawns a successor so the two jobs never share mutable
// barrier state.
func (seq *Sequence) Clone() *Sequence {
	out := &Sequence{kind: seq.kind, policy: seq.policy}
	out.sections = make([]*Section, len(seq.sections))
	for i, sec := range seq.sections {
		out.sections[i] = sec.Clone()
	}
	return out
}
