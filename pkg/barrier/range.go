// Package barrier implements the minimum-distance cache (BarrierSequence)
// that lets a reuse look-ahead job skip re-verifying robot samples it has
// already checked against an earlier, sufficiently similar human sample.
package barrier

// TraceSampleIndex addresses one robot sample within a prediction trace:
// the trace position of its mode, and the sample index within that mode.
type TraceSampleIndex struct {
	Trace  int
	Sample int
}

// TraceSampleRange tracks, for a single barrier, the span of
// (trace_index, sample_index) positions the barrier has been extended to
// cover. It is conceptually a function trace_index -> upper_sample_bound,
// held as a deque of per-trace-index upper bounds starting at the initial
// index.
type TraceSampleRange struct {
	initial     TraceSampleIndex
	upperBounds []int
}

// NewTraceSampleRange returns a range covering exactly initial.
func NewTraceSampleRange(initial TraceSampleIndex) TraceSampleRange {
	return TraceSampleRange{initial: initial, upperBounds: []int{initial.Sample}}
}

// Initial returns the range's initial position.
func (r *TraceSampleRange) Initial() TraceSampleIndex {
	return r.initial
}

// Update raises the current (last) trace index's upper sample bound.
func (r *TraceSampleRange) Update(sampleIndex int) {
	if n := len(r.upperBounds); n > 0 && sampleIndex > r.upperBounds[n-1] {
		r.upperBounds[n-1] = sampleIndex
	}
}

// IncreaseTraceIndex appends a new trace-index slot starting at sample 0.
func (r *TraceSampleRange) IncreaseTraceIndex() {
	r.upperBounds = append(r.upperBounds, 0)
}

// UpdateWith extends the range to account for an observation at index: new
// trace-index slots are appended if the trace moved forward, else the
// current slot's sample bound is raised.
func (r *TraceSampleRange) UpdateWith(index TraceSampleIndex) {
	if max := r.MaximumTraceIndex(); index.Trace > max {
		for i := 0; i < index.Trace-max; i++ {
			r.IncreaseTraceIndex()
		}
	} else {
		r.Update(index.Sample)
	}
}

// MaximumTraceIndex returns the highest trace index covered by the range.
// Undefined on an empty range.
func (r *TraceSampleRange) MaximumTraceIndex() int {
	return r.initial.Trace + len(r.upperBounds) - 1
}

// MaximumSampleIndex returns the upper sample bound of the highest covered
// trace index. Undefined on an empty range.
func (r *TraceSampleRange) MaximumSampleIndex() int {
	return r.upperBounds[len(r.upperBounds)-1]
}

// UpperBound returns the upper sample bound recorded for traceIndex.
func (r *TraceSampleRange) UpperBound(traceIndex int) int {
	return r.upperBounds[traceIndex-r.initial.Trace]
}

// ScaleDownTraceOf shifts the whole range down by amount trace indices,
// dropping the leading slots that fall below zero.
func (r *TraceSampleRange) ScaleDownTraceOf(amount int) {
	if r.IsEmpty() {
		return
	}
	if r.MaximumTraceIndex() < amount {
		r.upperBounds = r.upperBounds[:0]
		r.initial = TraceSampleIndex{}
		return
	}
	if r.initial.Trace < amount {
		r.upperBounds = append([]int(nil), r.upperBounds[amount-r.initial.Trace:]...)
		r.initial = TraceSampleIndex{}
		return
	}
	r.initial.Trace -= amount
}

// TrimDownTraceTo drops trailing slots until the maximum trace index is at
// most indexBound.
func (r *TraceSampleRange) TrimDownTraceTo(indexBound int) {
	for !r.IsEmpty() && r.MaximumTraceIndex() > indexBound {
		r.upperBounds = r.upperBounds[:len(r.upperBounds)-1]
	}
}

// IsEmpty reports whether the range covers no slots at all.
func (r *TraceSampleRange) IsEmpty() bool {
	return len(r.upperBounds) == 0
}

// Size returns the number of trace-index slots covered.
func (r *TraceSampleRange) Size() int {
	return len(r.upperBounds)
}

// Clone returns an independent copy of r.
func (r TraceSampleRange) Clone() TraceSampleRange {
	out := r
	out.upperBounds = append([]int(nil), r.upperBounds...)
	return out
}
