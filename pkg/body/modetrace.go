package body

// ModeTraceEntry pairs a Mode with its cumulative likelihood.
type ModeTraceEntry struct {
	Mode       Mode
	Likelihood float64
}

// NextModeEntry is one row of the probability distribution NextModes
// produces: a candidate successor mode and its estimated probability.
type NextModeEntry struct {
	Mode        Mode
	Probability float64
}

// ModeTrace is an ordered sequence of ModeTraceEntry values. The zero value
// is the empty trace.
type ModeTrace struct {
	entries   []ModeTraceEntry
	memo      []NextModeEntry
	memoErr   error
	memoValid bool
}

// NewModeTrace builds a trace from a starting mode with likelihood 1.
func NewModeTrace(start Mode) ModeTrace {
	return ModeTrace{entries: []ModeTraceEntry{{Mode: start, Likelihood: 1}}}
}

// Size returns the number of entries in the trace.
func (t *ModeTrace) Size() int {
	return len(t.entries)
}

// At returns the entry at index i.
func (t *ModeTrace) At(i int) ModeTraceEntry {
	return t.entries[i]
}

// Entries returns a read-only view of the trace's entries.
func (t *ModeTrace) Entries() []ModeTraceEntry {
	return t.entries
}

// invalidate drops the memoised NextModes result; called by every
// mutating operation.
func (t *ModeTrace) invalidate() {
	t.memo = nil
	t.memoErr = nil
	t.memoValid = false
}

// PushBack appends mode with cumulative likelihood = tail.Likelihood * factor
// (or simply factor, for an empty trace).
func (t *ModeTrace) PushBack(mode Mode, factor float64) {
	likelihood := factor
	if n := len(t.entries); n > 0 {
		likelihood = t.entries[n-1].Likelihood * factor
	}
	t.entries = append(t.entries, ModeTraceEntry{Mode: mode, Likelihood: likelihood})
	t.invalidate()
}

// PushFront prepends mode with likelihood 1.
func (t *ModeTrace) PushFront(mode Mode) {
	t.entries = append([]ModeTraceEntry{{Mode: mode, Likelihood: 1}}, t.entries...)
	t.invalidate()
}

// StartingMode returns the first entry's mode.
func (t *ModeTrace) StartingMode() Mode {
	return t.entries[0].Mode
}

// EndingMode returns the last entry's mode.
func (t *ModeTrace) EndingMode() Mode {
	return t.entries[len(t.entries)-1].Mode
}

// Likelihood returns the trailing entry's cumulative likelihood.
func (t *ModeTrace) Likelihood() float64 {
	return t.entries[len(t.entries)-1].Likelihood
}

// Contains reports whether mode occurs anywhere in the trace.
func (t *ModeTrace) Contains(mode Mode) (bool, error) {
	for _, e := range t.entries {
		eq, err := e.Mode.Equal(mode)
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}

// HasLooped reports whether the ending mode already appears earlier in the
// trace.
func (t *ModeTrace) HasLooped() (bool, error) {
	n := len(t.entries)
	if n == 0 {
		return false, nil
	}
	ending := t.entries[n-1].Mode
	for i := 0; i < n-1; i++ {
		eq, err := t.entries[i].Mode.Equal(ending)
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}

// ForwardIndex returns the first index (scanning from the front) at which
// mode occurs, or -1 if it never occurs.
func (t *ModeTrace) ForwardIndex(mode Mode) (int, error) {
	for i, e := range t.entries {
		eq, err := e.Mode.Equal(mode)
		if err != nil {
			return -1, err
		}
		if eq {
			return i, nil
		}
	}
	return -1, nil
}

// BackwardIndex returns the last index (scanning from the back) at which
// mode occurs, or -1 if it never occurs.
func (t *ModeTrace) BackwardIndex(mode Mode) (int, error) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		eq, err := t.entries[i].Mode.Equal(mode)
		if err != nil {
			return -1, err
		}
		if eq {
			return i, nil
		}
	}
	return -1, nil
}

// ReduceBetween returns the slice of entries between lo and hi, inclusive.
func (t *ModeTrace) ReduceBetween(lo, hi int) ModeTrace {
	out := make([]ModeTraceEntry, hi-lo+1)
	copy(out, t.entries[lo:hi+1])
	return ModeTrace{entries: out}
}

// Clone returns a deep-enough copy of the trace (the memo is not carried
// over since clones are typically about to be mutated independently).
func (t *ModeTrace) Clone() ModeTrace {
	out := make([]ModeTraceEntry, len(t.entries))
	copy(out, t.entries)
	return ModeTrace{entries: out}
}

// Merge concatenates a followed by b into a single trace, preserving each
// side's recorded likelihoods. Used by the look-ahead factory to join a
// robot history's recorded trace with a job's in-flight prediction trace
// before computing NextModes over the combination.
func Merge(a, b ModeTrace) ModeTrace {
	out := make([]ModeTraceEntry, 0, len(a.entries)+len(b.entries))
	out = append(out, a.entries...)
	out = append(out, b.entries...)
	return ModeTrace{entries: out}
}

// NextModes estimates, from historical recurrence within the trace itself,
// a probability distribution over modes that may follow the current ending
// mode. The result is memoised until the next mutation (PushBack, PushFront,
// or any operation producing a new trace via ReduceBetween/Clone, which
// start with a clean memo).
func (t *ModeTrace) NextModes() ([]NextModeEntry, error) {
	if t.memoValid {
		return t.memo, t.memoErr
	}
	modes, err := t.computeNextModes()
	t.memo = modes
	t.memoErr = err
	t.memoValid = true
	return modes, err
}

func (t *ModeTrace) computeNextModes() ([]NextModeEntry, error) {
	n := len(t.entries)
	if n <= 1 {
		return nil, nil
	}
	ending := t.entries[n-1].Mode

	var candidates []int
	for i := 0; i < n-1; i++ {
		eq, err := t.entries[i].Mode.Equal(ending)
		if err != nil {
			return nil, err
		}
		if eq {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	survivors := candidates
	for k := 1; ; k++ {
		var next []int
		for _, i := range survivors {
			if i-k < 0 {
				continue
			}
			eq, err := t.entries[i-k].Mode.Equal(t.entries[n-1-k].Mode)
			if err != nil {
				return nil, err
			}
			if eq {
				next = append(next, i)
			}
		}
		if len(next) == 0 {
			break
		}
		survivors = next
	}

	counts := map[string]float64{}
	order := []string{}
	modes := map[string]Mode{}
	for _, i := range survivors {
		succ := t.entries[i+1].Mode
		key := succ.Key()
		if _, ok := counts[key]; !ok {
			order = append(order, key)
			modes[key] = succ
		}
		counts[key]++
	}

	total := float64(len(survivors))
	result := make([]NextModeEntry, 0, len(order))
	for _, key := range order {
		result = append(result, NextModeEntry{Mode: modes[key], Probability: counts[key] / total})
	}
	return result, nil
}
