package runtime

import (
	"math"

	"github.com/opera-rt/opera/pkg/history"
)

// collisionDistance converts a found sample index into the [lower, upper]
// millisecond interval of the notification: the number of samples between
// the job's initial time and the collision, accumulated across the modes
// the prediction trace walks. The starting mode contributes its recorded
// presence-length range minus the offset already elapsed at InitialTime;
// intermediate modes contribute their full recorded ranges; the found
// index within the ending mode contributes itself.
func collisionDistance(job *Job, foundIndex int, robotHistory *history.RobotStateHistory) (lowerMS, upperMS int64, err error) {
	snapshot := robotHistory.SnapshotAt(job.SnapshotTime)
	trace := job.PredictionTrace

	lower, upper := foundIndex, foundIndex

	startIndex, err := snapshot.CheckedSampleIndex(trace.StartingMode(), job.InitialTime)
	if err != nil {
		return 0, 0, err
	}
	rangeLo, rangeHi := snapshot.RangeOfNumSamplesIn(trace.StartingMode())
	switch {
	case trace.Size() == 1:
		lower -= startIndex
		upper -= startIndex
	case startIndex > rangeLo:
		upper += rangeHi - startIndex
	default:
		lower += rangeLo - startIndex
		upper += rangeHi - startIndex
	}

	for i := 1; i < trace.Size()-1; i++ {
		lo, hi := snapshot.RangeOfNumSamplesIn(trace.At(i).Mode)
		lower += lo
		upper += hi
	}

	frequency := robotHistory.Robot().MessageFrequency
	lowerMS = int64(math.Round(1000 * float64(lower) / float64(frequency)))
	upperMS = int64(math.Round(1000 * float64(upper) / float64(frequency)))
	return lowerMS, upperMS, nil
}
