package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/opera-rt/opera/pkg/body"
	"github.com/opera-rt/opera/pkg/broker"
	"github.com/opera-rt/opera/pkg/geometry"
	"github.com/opera-rt/opera/pkg/history"
	"github.com/opera-rt/opera/pkg/lookahead"
	"github.com/opera-rt/opera/pkg/message"
	"github.com/opera-rt/opera/pkg/registry"
	"github.com/opera-rt/opera/pkg/sample"
)

// Receiver subscribes to the broker's three inbound topic families (body
// presentation, human state, robot state), routes them into the Registry,
// promotes pending (human, robot) pairs into initial look-ahead jobs once
// the robot's history supports prediction, and re-evaluates sleeping jobs
// on every new human state.
type Receiver struct {
	broker   broker.Broker
	registry *registry.Registry
	waiting  *JobQueue
	sleeping *SleepingQueue
	factory  *lookahead.Factory

	mu      sync.Mutex
	pending []pairKey // (human, robot) pairs known but not yet promoted
}

type pairKey struct {
	human, robot string
}

// NewReceiver constructs a Receiver. factory determines whether promoted
// and awoken jobs carry a BarrierSequence (reuse) or not (discard).
func NewReceiver(b broker.Broker, reg *registry.Registry, waiting *JobQueue, sleeping *SleepingQueue, factory *lookahead.Factory) *Receiver {
	return &Receiver{
		broker:   b,
		registry: reg,
		waiting:  waiting,
		sleeping: sleeping,
		factory:  factory,
	}
}

// Start subscribes to every inbound topic.
func (r *Receiver) Start(ctx context.Context) error {
	if err := r.broker.Subscribe(ctx, broker.TopicBodyPresentation, r.onBodyPresentation); err != nil {
		return err
	}
	if err := r.broker.Subscribe(ctx, broker.TopicHumanState, r.onHumanState); err != nil {
		return err
	}
	return r.broker.Subscribe(ctx, broker.TopicRobotState, r.onRobotState)
}

// NumPendingPairs reports how many known (human, robot) pairs have not
// been promoted into jobs yet.
func (r *Receiver) NumPendingPairs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Receiver) onBodyPresentation(_ context.Context, payload []byte) error {
	msg, err := message.UnmarshalBodyPresentation(payload)
	if err != nil {
		return err
	}
	if msg.IsHuman {
		h, err := msg.ToHuman()
		if err != nil {
			return err
		}
		if err := r.registry.InsertHuman(h); err != nil {
			slog.Warn("receiver: insert human failed", "id", msg.ID, "error", err)
			return nil
		}
		r.addPendingPairsForHuman(h.ID)
		return nil
	}
	rb, err := msg.ToRobot()
	if err != nil {
		return err
	}
	if err := r.registry.InsertRobot(rb); err != nil {
		slog.Warn("receiver: insert robot failed", "id", msg.ID, "error", err)
		return nil
	}
	r.addPendingPairsForRobot(rb.ID)
	return nil
}

func (r *Receiver) addPendingPairsForHuman(humanID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, robotID := range r.registry.RobotIDs() {
		r.pending = append(r.pending, pairKey{human: humanID, robot: robotID})
	}
}

func (r *Receiver) addPendingPairsForRobot(robotID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, humanID := range r.registry.HumanIDs() {
		r.pending = append(r.pending, pairKey{human: humanID, robot: robotID})
	}
}

// buildSamples converts a wire keypoint map into one BodySegmentSample per
// segment of b, folding in every observed point for the segment's head and
// tail keypoints.
func buildSamples(b *body.Body, keypoints map[string][]message.Point3) []sample.BodySegmentSample {
	out := make([]sample.BodySegmentSample, b.NumSegments())
	for i := 0; i < b.NumSegments(); i++ {
		seg := b.Segment(i)
		s := sample.NewEmpty(seg.Thickness)
		heads := toGeometryPoints(keypoints[seg.HeadID])
		tails := toGeometryPoints(keypoints[seg.TailID])
		s.Update(heads, tails)
		out[i] = s
	}
	return out
}

func toGeometryPoints(pts []message.Point3) []geometry.Point {
	out := make([]geometry.Point, len(pts))
	for i, p := range pts {
		out[i] = p.ToGeometry()
	}
	return out
}

func (r *Receiver) onHumanState(ctx context.Context, payload []byte) error {
	msg, err := message.UnmarshalHumanState(payload)
	if err != nil {
		return err
	}
	for _, b := range msg.Bodies {
		h, ok := r.registry.Human(b.BodyID)
		if !ok {
			continue // tolerable: state for a body never presented
		}
		samples := buildSamples(&h.Body, b.Keypoints)
		instance := history.HumanStateInstance{Timestamp: msg.Timestamp, Samples: samples}
		if err := r.registry.AcquireHumanState(b.BodyID, instance); err != nil {
			slog.Warn("receiver: acquire human state failed", "id", b.BodyID, "error", err)
			continue
		}
		r.wakeSleepingForHuman(b.BodyID, msg.Timestamp, samples)
		r.promotePendingPairs(msg.Timestamp)
	}
	return nil
}

func (r *Receiver) onRobotState(_ context.Context, payload []byte) error {
	msg, err := message.UnmarshalRobotState(payload)
	if err != nil {
		return err
	}
	if err := r.registry.AcquireRobotState(msg.BodyID, msg.ModeValue(), msg.Points(), msg.Timestamp); err != nil {
		slog.Warn("receiver: acquire robot state failed", "id", msg.BodyID, "error", err)
		return nil
	}
	return nil
}

// wakeSleepingForHuman awakens every job sleeping on humanID against the
// new samples, routing each awakening outcome: renewed jobs go to the
// waiting queue, unaffected/uncomputable/completed ones return to sleep.
// A job whose robot cannot support look-ahead at ts (e.g. it has moved
// into a mode never observed before) stays asleep untouched; a later
// human update will retry it once the robot's history has caught up.
func (r *Receiver) wakeSleepingForHuman(humanID string, ts uint64, samples []sample.BodySegmentSample) {
	for _, job := range r.sleeping.TakeForHuman(humanID) {
		var newSample *sample.BodySegmentSample
		if job.ID.HumanSegment < len(samples) {
			newSample = &samples[job.ID.HumanSegment]
		}
		r.awaken(job, ts, newSample)
	}
}

func (r *Receiver) awaken(job *Job, ts uint64, newSample *sample.BodySegmentSample) {
	robotHistory, ok := r.registry.RobotHistory(job.ID.RobotID)
	if !ok {
		return // robot removed while this job slept
	}
	if !robotHistory.SnapshotAt(ts).CanLookAhead(ts) {
		r.sleeping.Park(job)
		return
	}
	awakened, err := r.factory.Awaken(job, ts, newSample, robotHistory)
	if err != nil {
		slog.Error("receiver: awaken failed", "id", job.ID, "error", err)
		return
	}
	for _, a := range awakened {
		if a.Result == lookahead.Different {
			r.waiting.Enqueue(a.Job)
		} else {
			r.sleeping.Park(a.Job)
		}
	}
}

// promotePendingPairs walks the pending (human, robot) pairs and promotes
// every pair whose robot history now supports look-ahead at ts into the
// initial per-segment-pair jobs. Pairs whose human sample is still empty
// for a segment park that segment's job on the sleeping queue instead.
func (r *Receiver) promotePendingPairs(ts uint64) {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	var remaining []pairKey
	for _, key := range pending {
		if !r.promotePair(key, ts) {
			remaining = append(remaining, key)
		}
	}

	r.mu.Lock()
	r.pending = append(remaining, r.pending...)
	r.mu.Unlock()
}

// promotePair attempts to promote one pending pair, reporting whether it
// was consumed (promoted, or dropped because a body disappeared).
func (r *Receiver) promotePair(key pairKey, ts uint64) bool {
	human, ok := r.registry.Human(key.human)
	if !ok {
		return true
	}
	robot, ok := r.registry.Robot(key.robot)
	if !ok {
		return true
	}
	humanHistory, ok := r.registry.HumanHistory(key.human)
	if !ok {
		return true
	}
	instance, ok := humanHistory.LatestWithin(ts)
	if !ok {
		return false
	}
	robotHistory, ok := r.registry.RobotHistory(key.robot)
	if !ok {
		return true
	}
	snapshot := robotHistory.SnapshotAt(ts)
	if !snapshot.CanLookAhead(ts) {
		return false
	}
	startMode, ok := robotHistory.ModeAt(ts)
	if !ok {
		return false
	}

	for humanSeg := 0; humanSeg < human.NumSegments() && humanSeg < len(instance.Samples); humanSeg++ {
		humanSample := &instance.Samples[humanSeg]
		for robotSeg := 0; robotSeg < robot.NumSegments(); robotSeg++ {
			id := lookahead.Identifier{HumanID: key.human, HumanSegment: humanSeg, RobotID: key.robot, RobotSegment: robotSeg}
			job := r.factory.CreateNew(id, ts, humanSample, body.NewModeTrace(startMode), nil)
			if humanSample.IsEmpty() {
				r.sleeping.Park(job)
			} else {
				r.waiting.Enqueue(job)
			}
		}
	}
	return true
}
