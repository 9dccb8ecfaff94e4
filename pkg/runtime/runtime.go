package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/opera-rt/opera/pkg/barrier"
	"github.com/opera-rt/opera/pkg/broker"
	"github.com/opera-rt/opera/pkg/config"
	"github.com/opera-rt/opera/pkg/history"
	"github.com/opera-rt/opera/pkg/lookahead"
	"github.com/opera-rt/opera/pkg/message"
	"github.com/opera-rt/opera/pkg/registry"
)

// Runtime is the top-level predictive scheduling engine: it owns the
// waiting/sleeping job queues, the look-ahead job factory, and a fixed
// pool of worker goroutines draining the waiting queue.
type Runtime struct {
	registry *registry.Registry
	receiver *Receiver
	sender   *Sender
	waiting  *JobQueue
	sleeping *SleepingQueue
	factory  *lookahead.Factory

	workerCount int

	wg   sync.WaitGroup
	once sync.Once
}

// New assembles a Runtime from cfg, wiring a Receiver against b and reg,
// and a Sender publishing back through b.
func New(cfg *config.RuntimeConfig, b broker.Broker, reg *registry.Registry) *Runtime {
	var factory *lookahead.Factory
	if cfg.Variant == config.JobVariantReuse {
		equivalence := lookahead.Strong
		if cfg.WeakEquivalence {
			equivalence = lookahead.Weak
		}
		factory = lookahead.NewReuseFactory(toBarrierKind(cfg.BarrierKind), toBarrierPolicy(cfg.BarrierPolicy), equivalence)
		factory.SetWeakInvalidatesOnNewSamples(cfg.WeakReuseInvalidatesOnNewSamples)
	} else {
		factory = lookahead.NewDiscardFactory()
	}

	waiting := NewJobQueue()
	sleeping := NewSleepingQueue()
	receiver := NewReceiver(b, reg, waiting, sleeping, factory)

	return &Runtime{
		registry:    reg,
		receiver:    receiver,
		sender:      NewSender(b),
		waiting:     waiting,
		sleeping:    sleeping,
		factory:     factory,
		workerCount: cfg.WorkerCount,
	}
}

// Start subscribes the Receiver to the broker and launches the worker
// pool.
func (rt *Runtime) Start(ctx context.Context) error {
	if err := rt.receiver.Start(ctx); err != nil {
		return err
	}
	for i := 0; i < rt.workerCount; i++ {
		rt.wg.Add(1)
		go rt.work(ctx)
	}
	slog.Info("runtime: started", "workers", rt.workerCount, "reuse", rt.factory.IsReuse())
	return nil
}

// Stop signals every worker to exit and waits for them to drain.
func (rt *Runtime) Stop() {
	rt.once.Do(func() {
		rt.waiting.Stop()
	})
	rt.wg.Wait()
}

// QueueDepth reports the number of jobs currently waiting for a worker.
func (rt *Runtime) QueueDepth() int {
	return rt.waiting.Size()
}

// SleepingCount reports the number of jobs currently parked awaiting a
// triggering human state update.
func (rt *Runtime) SleepingCount() int {
	return rt.sleeping.Size()
}

// DiscardHumanJobs drops every sleeping job referencing one of the given
// evicted humans.
func (rt *Runtime) DiscardHumanJobs(humanIDs []string) {
	for _, id := range humanIDs {
		dropped := rt.sleeping.TakeForHuman(id)
		if len(dropped) > 0 {
			slog.Info("runtime: discarded sleeping jobs of evicted human", "human", id, "jobs", len(dropped))
		}
	}
}

func (rt *Runtime) work(ctx context.Context) {
	defer rt.wg.Done()
	for {
		job, ok := rt.waiting.ReserveAndDequeue()
		if !ok {
			return
		}
		rt.process(ctx, job)
	}
}

// process implements the per-job worker step: check for an earliest
// collision within the job's current prediction trace; on a hit, notify
// and park the job so future human updates can refine the finding; on a
// miss, extend the trace (CreateNext) and enqueue every successor, or park
// the job if the trace cannot be extended any further.
func (rt *Runtime) process(ctx context.Context, job *Job) {
	robotHistory, ok := rt.registry.RobotHistory(job.ID.RobotID)
	if !ok {
		return // robot removed mid-flight
	}
	if !rt.registry.HasHuman(job.ID.HumanID) {
		return // human removed while the job sat in the queue
	}

	foundIndex, err := job.EarliestCollisionIndex(robotHistory)
	if err != nil {
		slog.Error("runtime: earliest collision index failed", "id", job.ID, "error", err)
		return
	}

	if foundIndex >= 0 {
		rt.notifyCollision(ctx, job, foundIndex, robotHistory)
		if rt.registry.HasHuman(job.ID.HumanID) {
			rt.sleeping.Park(job)
		}
		return
	}

	successors, err := rt.factory.CreateNext(job, robotHistory)
	if err != nil {
		slog.Error("runtime: create next failed", "id", job.ID, "error", err)
		return
	}
	if len(successors) == 0 {
		rt.sleeping.Park(job)
		return
	}
	for _, next := range successors {
		if len(next.Path) > len(job.Path) && rt.factory.HasRegistered(next.InitialTime, next.ID, next.Path) {
			continue
		}
		rt.waiting.Enqueue(next)
	}
}

func (rt *Runtime) notifyCollision(ctx context.Context, job *Job, foundIndex int, robotHistory *history.RobotStateHistory) {
	lower, upper, err := collisionDistance(job, foundIndex, robotHistory)
	if err != nil {
		slog.Error("runtime: collision distance failed", "id", job.ID, "error", err)
		return
	}

	humanHead, humanTail, ok := rt.registry.SegmentKeypoints(job.ID.HumanID, job.ID.HumanSegment)
	if !ok {
		return
	}
	robotHead, robotTail, ok := rt.registry.SegmentKeypoints(job.ID.RobotID, job.ID.RobotSegment)
	if !ok {
		return
	}

	msg := message.CollisionNotification{
		Human:             message.SegmentRef{BodyID: job.ID.HumanID, SegmentID: [2]string{humanHead, humanTail}},
		Robot:             message.SegmentRef{BodyID: job.ID.RobotID, SegmentID: [2]string{robotHead, robotTail}},
		CurrentTime:       job.InitialTime,
		CollisionDistance: message.Interval{Lower: lower, Upper: upper},
		CollisionMode:     job.PredictionTrace.EndingMode().Assignment(),
		Likelihood:        job.PredictionTrace.Likelihood(),
	}
	rt.sender.SendCollision(ctx, msg)
}

func toBarrierKind(k config.BarrierKind) barrier.Kind {
	if k == config.BarrierSphere {
		return barrier.Sphere
	}
	return barrier.Capsule
}

func toBarrierPolicy(p config.BarrierUpdatePolicy) barrier.UpdatePolicy {
	switch p {
	case config.BarrierKeepOne:
		return barrier.KeepOne
	case config.BarrierAddWhenDifferent:
		return barrier.AddWhenDifferent
	default:
		return barrier.AddWhenNecessary
	}
}
