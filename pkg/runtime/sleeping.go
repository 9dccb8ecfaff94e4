package runtime

import "sync"

// SleepingQueue parks jobs that have either found a collision or run out
// of successors, indexed by human id and by robot id so that a new state
// event can cheaply find every job it should wake. Keyed rather than
// FIFO, since sleeping jobs are drained by event, not by a worker
// polling loop.
type SleepingQueue struct {
	mu      sync.Mutex
	byHuman map[string][]*Job
	byRobot map[string][]*Job
}

// NewSleepingQueue returns an empty sleeping queue.
func NewSleepingQueue() *SleepingQueue {
	return &SleepingQueue{
		byHuman: make(map[string][]*Job),
		byRobot: make(map[string][]*Job),
	}
}

// Park adds job to the sleeping queue under both its human and robot ids.
func (q *SleepingQueue) Park(job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.byHuman[job.ID.HumanID] = append(q.byHuman[job.ID.HumanID], job)
	q.byRobot[job.ID.RobotID] = append(q.byRobot[job.ID.RobotID], job)
}

// TakeForHuman removes and returns every job sleeping on humanID — used
// when a new human sample arrives, and when the human is evicted.
func (q *SleepingQueue) TakeForHuman(humanID string) []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := q.byHuman[humanID]
	delete(q.byHuman, humanID)
	if len(jobs) == 0 {
		return nil
	}
	q.removeFromRobotIndexLocked(jobs)
	return jobs
}

// TakeForRobot removes and returns every job sleeping on robotID. The
// runtime does not call it; robot state updates leave sleeping jobs in
// place.
func (q *SleepingQueue) TakeForRobot(robotID string) []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := q.byRobot[robotID]
	delete(q.byRobot, robotID)
	if len(jobs) == 0 {
		return nil
	}
	q.removeFromHumanIndexLocked(jobs)
	return jobs
}

func (q *SleepingQueue) removeFromRobotIndexLocked(jobs []*Job) {
	taken := make(map[*Job]bool, len(jobs))
	for _, j := range jobs {
		taken[j] = true
	}
	for robotID, list := range q.byRobot {
		kept := list[:0]
		for _, j := range list {
			if !taken[j] {
				kept = append(kept, j)
			}
		}
		if len(kept) == 0 {
			delete(q.byRobot, robotID)
		} else {
			q.byRobot[robotID] = kept
		}
	}
}

func (q *SleepingQueue) removeFromHumanIndexLocked(jobs []*Job) {
	taken := make(map[*Job]bool, len(jobs))
	for _, j := range jobs {
		taken[j] = true
	}
	for humanID, list := range q.byHuman {
		kept := list[:0]
		for _, j := range list {
			if !taken[j] {
				kept = append(kept, j)
			}
		}
		if len(kept) == 0 {
			delete(q.byHuman, humanID)
		} else {
			q.byHuman[humanID] = kept
		}
	}
}

// Size returns the total number of parked jobs.
func (q *SleepingQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, list := range q.byHuman {
		n += len(list)
	}
	return n
}
