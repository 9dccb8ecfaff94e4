// Package registry implements BodyRegistry: the process-wide,
// mutex-protected catalog of robot and human bodies and their histories.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opera-rt/opera/pkg/body"
	"github.com/opera-rt/opera/pkg/geometry"
	"github.com/opera-rt/opera/pkg/history"
)

type humanEntry struct {
	human    body.Human
	history  *history.HumanStateHistory
	lastSeen uint64
}

type robotEntry struct {
	robot   body.Robot
	history *history.RobotStateHistory
}

// Registry is BodyRegistry: a mutex-guarded catalog of every known human
// and robot body, plus their per-body histories.
type Registry struct {
	mu     sync.RWMutex
	humans map[string]*humanEntry
	robots map[string]*robotEntry

	latestTimestamp uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		humans: make(map[string]*humanEntry),
		robots: make(map[string]*robotEntry),
	}
}

// InsertHuman creates a new human body and an empty history for it. It is a
// precondition violation for id to already name a body (human or robot).
func (r *Registry) InsertHuman(h body.Human) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkFreeLocked(h.ID); err != nil {
		return err
	}
	r.humans[h.ID] = &humanEntry{human: h, history: history.NewHumanStateHistory()}
	return nil
}

// InsertRobot creates a new robot body and an empty history for it. It is a
// precondition violation for id to already name a body.
func (r *Registry) InsertRobot(rb body.Robot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkFreeLocked(rb.ID); err != nil {
		return err
	}
	r.robots[rb.ID] = &robotEntry{robot: rb, history: history.NewRobotStateHistory(rb)}
	return nil
}

func (r *Registry) checkFreeLocked(id string) error {
	if _, ok := r.humans[id]; ok {
		return fmt.Errorf("registry: body %q already exists", id)
	}
	if _, ok := r.robots[id]; ok {
		return fmt.Errorf("registry: body %q already exists", id)
	}
	return nil
}

// Remove erases a body (human or robot) and its history. It is a no-op if
// id names no body.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.humans, id)
	delete(r.robots, id)
}

// HasHuman reports whether id names a known human body.
func (r *Registry) HasHuman(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.humans[id]
	return ok
}

// HasRobot reports whether id names a known robot body.
func (r *Registry) HasRobot(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.robots[id]
	return ok
}

// Human returns the human body named id.
func (r *Registry) Human(id string) (body.Human, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.humans[id]
	if !ok {
		return body.Human{}, false
	}
	return e.human, true
}

// Robot returns the robot body named id.
func (r *Registry) Robot(id string) (body.Robot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.robots[id]
	if !ok {
		return body.Robot{}, false
	}
	return e.robot, true
}

// HumanHistory returns the history handle for human id. The handle is
// stable for the body's lifetime and safe to retain across calls.
func (r *Registry) HumanHistory(id string) (*history.HumanStateHistory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.humans[id]
	if !ok {
		return nil, false
	}
	return e.history, true
}

// RobotHistory returns the history handle for robot id.
func (r *Registry) RobotHistory(id string) (*history.RobotStateHistory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.robots[id]
	if !ok {
		return nil, false
	}
	return e.history, true
}

// CountHumans returns the number of known human bodies.
func (r *Registry) CountHumans() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.humans)
}

// CountRobots returns the number of known robot bodies.
func (r *Registry) CountRobots() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.robots)
}

// HumanIDs returns the ids of every known human body.
func (r *Registry) HumanIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.humans))
	for id := range r.humans {
		ids = append(ids, id)
	}
	return ids
}

// RobotIDs returns the ids of every known robot body.
func (r *Registry) RobotIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.robots))
	for id := range r.robots {
		ids = append(ids, id)
	}
	return ids
}

// SegmentKeypoints returns the head/tail keypoint ids of segment segIdx of
// body bodyID (human or robot), used by the sender to build notification
// messages.
func (r *Registry) SegmentKeypoints(bodyID string, segIdx int) (head, tail string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, found := r.humans[bodyID]; found {
		if segIdx < 0 || segIdx >= e.human.NumSegments() {
			return "", "", false
		}
		seg := e.human.Segment(segIdx)
		return seg.HeadID, seg.TailID, true
	}
	if e, found := r.robots[bodyID]; found {
		if segIdx < 0 || segIdx >= e.robot.NumSegments() {
			return "", "", false
		}
		seg := e.robot.Segment(segIdx)
		return seg.HeadID, seg.TailID, true
	}
	return "", "", false
}

// AcquireHumanState appends a new observed instance to human id's history,
// refreshing its retention clock. It is a precondition violation for id to
// name no known human.
func (r *Registry) AcquireHumanState(id string, instance history.HumanStateInstance) error {
	r.mu.Lock()
	e, ok := r.humans[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("registry: unknown human %q", id)
	}
	e.lastSeen = instance.Timestamp
	if instance.Timestamp > r.latestTimestamp {
		r.latestTimestamp = instance.Timestamp
	}
	r.mu.Unlock()
	e.history.Append(instance)
	return nil
}

// AcquireRobotState folds a new robot state observation into robot id's
// history. It is a precondition violation for id to name no known robot.
func (r *Registry) AcquireRobotState(id string, mode body.Mode, points [][]geometry.Point, timestamp uint64) error {
	r.mu.Lock()
	e, ok := r.robots[id]
	if ok && timestamp > r.latestTimestamp {
		r.latestTimestamp = timestamp
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("registry: unknown robot %q", id)
	}
	return e.history.Acquire(mode, points, timestamp)
}

// LatestTimestamp returns the largest timestamp observed across every
// state message acquired so far, human or robot.
func (r *Registry) LatestTimestamp() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latestTimestamp
}

// EvictStaleHumans removes every human body whose last observed state
// message is at least timeout (milliseconds) older than the registry's
// latest observed timestamp, and returns their ids.
func (r *Registry) EvictStaleHumans(timeout uint64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for id, e := range r.humans {
		if r.latestTimestamp >= e.lastSeen+timeout {
			delete(r.humans, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// StartEvictionLoop launches a background loop that periodically calls
// EvictStaleHumans and invokes onRemoved with the ids it evicted. The
// timeout is measured in message-timestamp milliseconds, not wall-clock
// time, so replayed or simulated streams age out the same way live ones
// do.
func (r *Registry) StartEvictionLoop(ctx context.Context, interval time.Duration, timeout uint64, onRemoved func([]string)) {
	if r.cancel != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := r.EvictStaleHumans(timeout)
				if len(removed) > 0 {
					slog.Info("registry: evicted stale humans", "ids", removed)
					if onRemoved != nil {
						onRemoved(removed)
					}
				}
			}
		}
	}()
}

// StopEvictionLoop signals the background eviction loop to exit and waits
// for it to finish. It is a no-op if the loop was never started.
func (r *Registry) StopEvictionLoop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

// PurgeHistories drops history entries that lie entirely before cutoff:
// human state instances, and robot presence/trace-log entries. Flushed
// robot samples are kept, since look-ahead scans them by mode regardless
// of age.
func (r *Registry) PurgeHistories(cutoff uint64) {
	r.mu.RLock()
	humans := make([]*history.HumanStateHistory, 0, len(r.humans))
	for _, e := range r.humans {
		humans = append(humans, e.history)
	}
	robots := make([]*history.RobotStateHistory, 0, len(r.robots))
	for _, e := range r.robots {
		robots = append(robots, e.history)
	}
	r.mu.RUnlock()
	for _, h := range humans {
		h.PurgeOlderThan(cutoff)
	}
	for _, h := range robots {
		h.RemoveOlderThan(cutoff)
	}
}
