// Package history implements the per-body time-indexed sample stores: the
// append-only human state deque and the per-mode robot state history with
// its mode-presence log and trace log.
package history

import (
	"fmt"
	"sync"

	"github.com/opera-rt/opera/pkg/sample"
)

// HumanStateInstance is one observed timestamp plus one segment sample per
// human segment.
type HumanStateInstance struct {
	Timestamp uint64
	Samples   []sample.BodySegmentSample
}

// HumanStateHistory is the append-only, time-ordered deque of a human
// body's observed states.
type HumanStateHistory struct {
	mu        sync.RWMutex
	instances []HumanStateInstance
}

// NewHumanStateHistory returns an empty history.
func NewHumanStateHistory() *HumanStateHistory {
	return &HumanStateHistory{}
}

// Append adds a new instance. Callers (the receiver) are responsible for
// ensuring timestamps are non-decreasing across calls for a single history.
func (h *HumanStateHistory) Append(instance HumanStateInstance) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.instances = append(h.instances, instance)
}

// Len returns the number of retained instances.
func (h *HumanStateHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.instances)
}

// LatestWithin returns the instance with the largest timestamp <= t, and
// whether one exists.
func (h *HumanStateHistory) LatestWithin(t uint64) (HumanStateInstance, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := len(h.instances) - 1; i >= 0; i-- {
		if h.instances[i].Timestamp <= t {
			return h.instances[i], true
		}
	}
	return HumanStateInstance{}, false
}

// IndexRange returns the instances whose timestamp falls within [lo, hi].
func (h *HumanStateHistory) IndexRange(lo, hi uint64) []HumanStateInstance {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []HumanStateInstance
	for _, inst := range h.instances {
		if inst.Timestamp >= lo && inst.Timestamp <= hi {
			out = append(out, inst)
		}
	}
	return out
}

// DistanceBetween returns t2-t1 (as a signed duration in milliseconds) for
// two instances identified by their exact timestamps. It is an invariant
// violation, surfaced as an error, for either timestamp to be absent from
// the history.
func (h *HumanStateHistory) DistanceBetween(t1, t2 uint64) (int64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.hasTimestamp(t1) {
		return 0, fmt.Errorf("history: no instance at timestamp %d", t1)
	}
	if !h.hasTimestamp(t2) {
		return 0, fmt.Errorf("history: no instance at timestamp %d", t2)
	}
	return int64(t2) - int64(t1), nil
}

func (h *HumanStateHistory) hasTimestamp(t uint64) bool {
	for _, inst := range h.instances {
		if inst.Timestamp == t {
			return true
		}
	}
	return false
}

// PurgeOlderThan drops every instance strictly older than cutoff.
func (h *HumanStateHistory) PurgeOlderThan(cutoff uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.instances[:0]
	for _, inst := range h.instances {
		if inst.Timestamp >= cutoff {
			kept = append(kept, inst)
		}
	}
	h.instances = kept
}
