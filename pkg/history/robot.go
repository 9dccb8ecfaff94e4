package history

import (
	"fmt"
	"math"
	"sync"

	"github.com/opera-rt/opera/pkg/body"
	"github.com/opera-rt/opera/pkg/geometry"
	"github.com/opera-rt/opera/pkg/sample"
)

// RobotModePresence records one concluded contiguous interval during which
// the robot was in one mode, along with the mode it exited into. To is
// exclusive. The very first presence carries the empty mode, spanning the
// instant before the first observed state.
type RobotModePresence struct {
	Mode            body.Mode
	ExitDestination body.Mode
	From, To        uint64
}

// BodySamples is a per-segment list of sample lists: BodySamples[seg][idx]
// is the idx-th sample of segment seg within a mode.
type BodySamples [][]sample.BodySegmentSample

func cloneBodySamples(in BodySamples) BodySamples {
	out := make(BodySamples, len(in))
	for i, segSamples := range in {
		out[i] = append([]sample.BodySegmentSample(nil), segSamples...)
	}
	return out
}

// SamplesEntry is one flushed (timestamp, samples) version of a mode's
// sample store: the full per-segment sample list as it stood when the mode
// was exited at Timestamp.
type SamplesEntry struct {
	Timestamp uint64
	Samples   BodySamples
}

// SamplesHistory is the append-ordered list of flushed sample versions for
// one mode, one entry per concluded presence of that mode.
type SamplesHistory struct {
	entries []SamplesEntry
}

// Append adds a new flushed version.
func (s *SamplesHistory) Append(ts uint64, samples BodySamples) {
	s.entries = append(s.entries, SamplesEntry{Timestamp: ts, Samples: samples})
}

// At returns the latest flushed version whose timestamp is <= t.
func (s *SamplesHistory) At(t uint64) (BodySamples, bool) {
	if s == nil {
		return nil, false
	}
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Timestamp <= t {
			return s.entries[i].Samples, true
		}
	}
	return nil, false
}

// HasSamplesAt reports whether some flushed version exists at or before t.
func (s *SamplesHistory) HasSamplesAt(t uint64) bool {
	_, ok := s.At(t)
	return ok
}

// SizeAt returns the per-segment sample count of the version at t.
func (s *SamplesHistory) SizeAt(t uint64) int {
	samples, ok := s.At(t)
	if !ok || len(samples) == 0 {
		return 0
	}
	return len(samples[0])
}

type traceLogEntry struct {
	Timestamp uint64
	Trace     body.ModeTrace
}

// RobotStateHistory is the full history of one robot: the in-progress
// sample buffer for the current mode, the per-mode flushed sample stores,
// the concluded mode-presence log, and the trace log. Separate mutexes
// guard the presence log and the samples store, per the concurrency model.
type RobotStateHistory struct {
	robot body.Robot

	samplesMu sync.RWMutex
	hasMode   bool
	mode      body.Mode
	latest    uint64
	buffer    BodySamples
	perMode   map[string]*SamplesHistory

	presenceMu sync.RWMutex
	presences  []RobotModePresence

	traceMu  sync.RWMutex
	traceLog []traceLogEntry
}

// NewRobotStateHistory returns an empty history for robot.
func NewRobotStateHistory(robot body.Robot) *RobotStateHistory {
	buffer := make(BodySamples, robot.NumSegments())
	return &RobotStateHistory{
		robot:    robot,
		buffer:   buffer,
		perMode:  make(map[string]*SamplesHistory),
		traceLog: []traceLogEntry{{Timestamp: 0, Trace: body.ModeTrace{}}},
	}
}

// Robot returns the robot this history belongs to.
func (h *RobotStateHistory) Robot() body.Robot {
	return h.robot
}

// LatestTimestamp returns the timestamp of the most recent acquisition.
func (h *RobotStateHistory) LatestTimestamp() uint64 {
	h.samplesMu.RLock()
	defer h.samplesMu.RUnlock()
	return h.latest
}

// LatestMode returns the mode of the most recent acquisition.
func (h *RobotStateHistory) LatestMode() (body.Mode, bool) {
	h.samplesMu.RLock()
	defer h.samplesMu.RUnlock()
	return h.mode, h.hasMode
}

// ModeAt returns the mode the robot occupied at time t: the mode of the
// concluded presence containing t, or the current mode if t falls after
// every concluded presence.
func (h *RobotStateHistory) ModeAt(t uint64) (body.Mode, bool) {
	h.presenceMu.RLock()
	for _, p := range h.presences {
		if p.From <= t && t < p.To && !p.Mode.IsEmpty() {
			h.presenceMu.RUnlock()
			return p.Mode, true
		}
	}
	h.presenceMu.RUnlock()
	return h.LatestMode()
}

func sampleIndexOf(timestamp, entry uint64, frequency int) float64 {
	return float64(timestamp-entry) / 1000.0 * float64(frequency)
}

// currentModeEntrance returns the timestamp at which the current mode was
// entered: the To of the last concluded presence.
func (h *RobotStateHistory) currentModeEntrance() (uint64, bool) {
	h.presenceMu.RLock()
	defer h.presenceMu.RUnlock()
	if n := len(h.presences); n > 0 {
		return h.presences[n-1].To, true
	}
	return 0, false
}

// Acquire atomically folds a new robot state observation into the
// history. On a mode change it flushes the in-progress buffer into the
// exited mode's SamplesHistory, seeds a fresh buffer for the new mode
// (cloned from the mode's last flushed version, if any), concludes the
// presence, and appends a trace-log entry extended with the exited mode.
// Within a mode, the observation refines the buffered sample whose index
// corresponds to the timestamp, padding any gap with copies of the last
// sample. pointsByKeypoint holds the points observed in this message, one
// list per keypoint in the robot's keypoint order; each segment's sample
// folds in the lists of its head and tail keypoints.
func (h *RobotStateHistory) Acquire(mode body.Mode, pointsByKeypoint [][]geometry.Point, timestamp uint64) error {
	h.samplesMu.Lock()
	defer h.samplesMu.Unlock()

	numSegments := h.robot.NumSegments()
	if len(pointsByKeypoint) != h.robot.NumKeypoints() {
		return fmt.Errorf("robot %q: expected %d keypoints, got %d", h.robot.ID, h.robot.NumKeypoints(), len(pointsByKeypoint))
	}

	changed := !h.hasMode
	if h.hasMode {
		eq, err := h.mode.Equal(mode)
		if err != nil {
			return err
		}
		changed = !eq
	}

	if changed {
		if h.hasMode {
			if entrance, ok := h.currentModeEntrance(); ok && len(h.buffer) > 0 && len(h.buffer[0]) > 0 {
				unrounded := sampleIndexOf(timestamp, entrance, h.robot.MessageFrequency)
				lastIdx := len(h.buffer[0]) - 1
				if unrounded > float64(lastIdx+1) {
					gap := int(math.Floor(unrounded)) - lastIdx
					for seg := 0; seg < numSegments; seg++ {
						last := h.buffer[seg][lastIdx]
						for j := 0; j < gap; j++ {
							h.buffer[seg] = append(h.buffer[seg], last)
						}
					}
				}
			}
			h.flushBufferLocked(timestamp)
		}

		if existing, ok := h.perMode[mode.Key()]; ok {
			if samples, found := existing.At(timestamp); found {
				h.buffer = cloneBodySamples(samples)
			} else {
				h.buffer = make(BodySamples, numSegments)
			}
		} else {
			h.buffer = make(BodySamples, numSegments)
		}

		h.appendPresence(mode, timestamp)
		if h.hasMode {
			h.appendTraceEntry(timestamp)
		}
		h.mode = mode
		h.hasMode = true
	}
	h.latest = timestamp

	updateIdx := 0
	if len(h.buffer) > 0 {
		updateIdx = len(h.buffer[0])
	}
	idxDistance := 1
	if flushed, ok := h.perMode[mode.Key()]; ok && flushed.HasSamplesAt(timestamp) {
		entrance, ok := h.currentModeEntrance()
		if !ok {
			entrance = timestamp
		}
		updateIdx = int(math.Floor(sampleIndexOf(timestamp, entrance, h.robot.MessageFrequency)))
		idxDistance = updateIdx - (flushed.SizeAt(timestamp) - 1)
	}

	for seg := 0; seg < numSegments; seg++ {
		for j := 0; j < idxDistance-1; j++ {
			h.buffer[seg] = append(h.buffer[seg], h.buffer[seg][len(h.buffer[seg])-1])
		}
		if idxDistance > 0 {
			h.buffer[seg] = append(h.buffer[seg], sample.NewEmpty(h.robot.Segment(seg).Thickness))
		}
		segment := h.robot.Segment(seg)
		heads := pointsByKeypoint[h.robot.KeypointIndex(segment.HeadID)]
		tails := pointsByKeypoint[h.robot.KeypointIndex(segment.TailID)]
		h.buffer[seg][updateIdx].Update(heads, tails)
	}

	return nil
}

// flushBufferLocked appends the in-progress buffer as a new version of the
// current mode's sample store. Caller holds samplesMu.
func (h *RobotStateHistory) flushBufferLocked(timestamp uint64) {
	key := h.mode.Key()
	sh, ok := h.perMode[key]
	if !ok {
		sh = &SamplesHistory{}
		h.perMode[key] = sh
	}
	sh.Append(timestamp, cloneBodySamples(h.buffer))
}

// appendPresence concludes the previous mode's presence, recording next as
// its exit destination. The first presence carries the empty mode.
func (h *RobotStateHistory) appendPresence(next body.Mode, timestamp uint64) {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()
	entrance := timestamp
	if n := len(h.presences); n > 0 {
		entrance = h.presences[n-1].To
	}
	prev := body.EmptyMode()
	if h.hasMode {
		prev = h.mode
	}
	h.presences = append(h.presences, RobotModePresence{
		Mode:            prev,
		ExitDestination: next,
		From:            entrance,
		To:              timestamp,
	})
}

// appendTraceEntry records, at timestamp, the trace extended with the mode
// being exited.
func (h *RobotStateHistory) appendTraceEntry(timestamp uint64) {
	h.traceMu.Lock()
	defer h.traceMu.Unlock()
	trace := h.traceLog[len(h.traceLog)-1].Trace.Clone()
	trace.PushBack(h.mode, 1.0)
	h.traceLog = append(h.traceLog, traceLogEntry{Timestamp: timestamp, Trace: trace})
}

// RemoveOlderThan drops concluded presences and trace-log entries that lie
// entirely before cutoff. The most recent trace-log entry is always
// retained so snapshot queries keep working.
func (h *RobotStateHistory) RemoveOlderThan(cutoff uint64) {
	h.presenceMu.Lock()
	kept := h.presences[:0]
	for _, p := range h.presences {
		if p.To >= cutoff {
			kept = append(kept, p)
		}
	}
	h.presences = kept
	h.presenceMu.Unlock()

	h.traceMu.Lock()
	start := 0
	for start < len(h.traceLog)-1 && h.traceLog[start].Timestamp < cutoff {
		start++
	}
	h.traceLog = append([]traceLogEntry(nil), h.traceLog[start:]...)
	h.traceMu.Unlock()
}

// RobotStateHistorySnapshot is a read-only view of a RobotStateHistory
// fixed at a timestamp.
type RobotStateHistorySnapshot struct {
	history *RobotStateHistory
	at      uint64
}

// SnapshotAt returns a read-only view of h fixed at timestamp t.
func (h *RobotStateHistory) SnapshotAt(t uint64) RobotStateHistorySnapshot {
	return RobotStateHistorySnapshot{history: h, at: t}
}

// GetRobot returns the underlying robot.
func (s RobotStateHistorySnapshot) GetRobot() body.Robot {
	return s.history.robot
}

// ModeTrace returns the most recent trace-log entry whose timestamp is at
// or before the snapshot's time. The trace ends at the mode the robot last
// exited before that time; the mode it currently occupies is not part of
// it.
func (s RobotStateHistorySnapshot) ModeTrace() body.ModeTrace {
	h := s.history
	h.traceMu.RLock()
	defer h.traceMu.RUnlock()
	for i := len(h.traceLog) - 1; i >= 0; i-- {
		if h.traceLog[i].Timestamp <= s.at {
			return h.traceLog[i].Trace.Clone()
		}
	}
	return body.ModeTrace{}
}

// Samples returns the flushed sample store for mode as of the snapshot's
// time: the per-segment sample lists recorded when the mode was last
// exited.
func (s RobotStateHistorySnapshot) Samples(mode body.Mode) (BodySamples, bool) {
	h := s.history
	h.samplesMu.RLock()
	defer h.samplesMu.RUnlock()
	return h.perMode[mode.Key()].At(s.at)
}

// MaxNumSamples returns the per-segment sample count of mode's flushed
// store as of the snapshot's time.
func (s RobotStateHistorySnapshot) MaxNumSamples(mode body.Mode) int {
	h := s.history
	h.samplesMu.RLock()
	defer h.samplesMu.RUnlock()
	return h.perMode[mode.Key()].SizeAt(s.at)
}

// PresencesIn returns every concluded presence of mode at or before the
// snapshot's time.
func (s RobotStateHistorySnapshot) PresencesIn(mode body.Mode) []RobotModePresence {
	return s.filterPresences(func(p RobotModePresence) bool {
		if p.Mode.IsEmpty() {
			return false
		}
		eq, err := p.Mode.Equal(mode)
		return err == nil && eq
	})
}

// PresencesBetween returns every concluded presence of source that exited
// into destination.
func (s RobotStateHistorySnapshot) PresencesBetween(source, destination body.Mode) []RobotModePresence {
	return s.filterPresences(func(p RobotModePresence) bool {
		if p.Mode.IsEmpty() {
			return false
		}
		eq, err := p.Mode.Equal(source)
		if err != nil || !eq {
			return false
		}
		teq, err := p.ExitDestination.Equal(destination)
		return err == nil && teq
	})
}

// PresencesExitingInto returns every concluded presence that exited into
// mode.
func (s RobotStateHistorySnapshot) PresencesExitingInto(mode body.Mode) []RobotModePresence {
	return s.filterPresences(func(p RobotModePresence) bool {
		eq, err := p.ExitDestination.Equal(mode)
		return err == nil && eq
	})
}

func (s RobotStateHistorySnapshot) filterPresences(pred func(RobotModePresence) bool) []RobotModePresence {
	h := s.history
	h.presenceMu.RLock()
	defer h.presenceMu.RUnlock()
	var out []RobotModePresence
	for _, p := range h.presences {
		if p.To > s.at {
			continue
		}
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s RobotStateHistorySnapshot) rangeOfNumSamplesWithin(presences []RobotModePresence) (lower, upper int) {
	if len(presences) == 0 {
		return 0, 0
	}
	lower = math.MaxInt
	for _, p := range presences {
		n := int(math.Floor(float64(p.To-p.From) / 1000.0 * float64(s.history.robot.MessageFrequency)))
		if n < lower {
			lower = n
		}
		if n > upper {
			upper = n
		}
	}
	return lower, upper
}

// RangeOfNumSamplesIn returns the min and max sample counts observed
// across concluded presences of mode.
func (s RobotStateHistorySnapshot) RangeOfNumSamplesIn(mode body.Mode) (lower, upper int) {
	return s.rangeOfNumSamplesWithin(s.PresencesIn(mode))
}

// RangeOfNumSamplesBetween returns the min and max sample counts observed
// across concluded presences of source that exited into destination.
func (s RobotStateHistorySnapshot) RangeOfNumSamplesBetween(source, destination body.Mode) (lower, upper int) {
	return s.rangeOfNumSamplesWithin(s.PresencesBetween(source, destination))
}

// CanLookAhead reports whether forward prediction starting at time is
// meaningful: the robot's mode at that time has flushed samples, the
// sample index at that time falls within the recorded sample range, and
// the robot has concluded at least one earlier presence of the mode.
func (s RobotStateHistorySnapshot) CanLookAhead(time uint64) bool {
	h := s.history
	if time > h.LatestTimestamp() {
		return false
	}
	mode, ok := h.ModeAt(time)
	if !ok {
		return false
	}
	h.samplesMu.RLock()
	sh, found := h.perMode[mode.Key()]
	hasSamples := found && sh.HasSamplesAt(time)
	h.samplesMu.RUnlock()
	if !hasSamples {
		return false
	}
	unrounded, err := s.UnroundedSampleIndex(mode, time)
	if err != nil {
		return false
	}
	_, upper := s.RangeOfNumSamplesIn(mode)
	if unrounded >= float64(upper) {
		return false
	}
	h.presenceMu.RLock()
	defer h.presenceMu.RUnlock()
	for _, p := range h.presences {
		if p.From >= s.at {
			break
		}
		if p.Mode.IsEmpty() {
			continue
		}
		eq, err := p.Mode.Equal(mode)
		if err == nil && eq && time > p.To {
			return true
		}
	}
	return false
}

// UnroundedSampleIndex returns the exact (non-floored) sample index that
// timestamp occupies within the presence of mode active at that time. It
// is an invariant violation, surfaced as an error, for no presence of mode
// to cover the timestamp.
func (s RobotStateHistorySnapshot) UnroundedSampleIndex(mode body.Mode, timestamp uint64) (float64, error) {
	h := s.history
	h.presenceMu.RLock()
	defer h.presenceMu.RUnlock()

	var entry uint64
	found := false
	if n := len(h.presences); n > 0 && timestamp >= h.presences[n-1].To {
		entry = h.presences[n-1].To
		found = true
	} else {
		for i := len(h.presences) - 1; i >= 0; i-- {
			p := h.presences[i]
			eq, err := p.Mode.Equal(mode)
			if err != nil {
				continue
			}
			if eq && p.From <= timestamp && p.To > timestamp {
				entry = p.From
				found = true
				break
			}
		}
	}
	if !found || entry > timestamp {
		return 0, fmt.Errorf("history: no presence of mode %s covers timestamp %d", mode, timestamp)
	}
	return sampleIndexOf(timestamp, entry, h.robot.MessageFrequency), nil
}

// CheckedSampleIndex is UnroundedSampleIndex floored to an int, failing if
// the result falls outside the recorded sample range for mode.
func (s RobotStateHistorySnapshot) CheckedSampleIndex(mode body.Mode, timestamp uint64) (int, error) {
	raw, err := s.UnroundedSampleIndex(mode, timestamp)
	if err != nil {
		return 0, err
	}
	idx := int(math.Floor(raw))
	if idx >= s.MaxNumSamples(mode) {
		return 0, fmt.Errorf("history: sample index %d out of range for mode %s", idx, mode)
	}
	return idx, nil
}
