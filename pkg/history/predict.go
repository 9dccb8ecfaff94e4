package history

import (
	"fmt"

	"github.com/opera-rt/opera/pkg/body"
)

const predictTimingMaxDepth = 32

// PredictTiming estimates, from a snapshot and a target mode, how long
// until the robot is expected to reach the target, by growing a
// bounded-depth branch search over NextModes() and following the
// highest-likelihood branch that reaches it. It does not participate in
// the core collision pipeline; it backs the operator-facing prediction
// endpoint.
type PredictTiming struct {
	NanosecondsToMode    uint64
	ImpossiblePrediction bool
}

// Predict computes timing from snapshot toward target.
func Predict(snapshot RobotStateHistorySnapshot, target body.Mode) (PredictTiming, error) {
	trace := snapshot.ModeTrace()
	if trace.Size() == 0 {
		return PredictTiming{ImpossiblePrediction: true}, nil
	}
	indexPresent := trace.Size() - 1

	root, err := findPaths(trace.Clone(), target, indexPresent, 0)
	if err != nil {
		return PredictTiming{}, err
	}

	best, found := bestBranch(root.leaves, target)
	if !found {
		return PredictTiming{ImpossiblePrediction: true}, nil
	}

	frequency := snapshot.GetRobot().MessageFrequency
	var nSamples uint64
	for i := indexPresent; i < best.Size()-1; i++ {
		lower, upper := snapshot.RangeOfNumSamplesBetween(best.At(i).Mode, best.At(i+1).Mode)
		nSamples += uint64((lower + upper) / 2)
	}
	const nanosPerSecond = 1_000_000_000
	return PredictTiming{NanosecondsToMode: nSamples * nanosPerSecond / uint64(frequency)}, nil
}

type pathSearch struct {
	leaves []body.ModeTrace
}

// findPaths grows trace forward via NextModes() until it reaches target or
// exceeds the max search depth, recording every branch explored.
func findPaths(trace body.ModeTrace, target body.Mode, indexPresent, depth int) (pathSearch, error) {
	result := pathSearch{}
	for depth <= predictTimingMaxDepth {
		eq, err := trace.At(trace.Size() - 1).Mode.Equal(target)
		if err != nil {
			return result, err
		}
		if eq {
			break
		}
		depth = trace.Size() - 1 - indexPresent
		if depth > predictTimingMaxDepth {
			break
		}
		next, err := trace.NextModes()
		if err != nil {
			return result, err
		}
		if len(next) == 0 {
			break
		}
		if len(next) == 1 {
			trace.PushBack(next[0].Mode, next[0].Probability)
			continue
		}
		first := true
		for _, cand := range next {
			if cand.Mode.IsEmpty() {
				continue
			}
			if first {
				trace.PushBack(cand.Mode, cand.Probability)
				first = false
				continue
			}
			clone := trace.Clone()
			clone.PushBack(cand.Mode, cand.Probability)
			sub, err := findPaths(clone, target, indexPresent, depth+1)
			if err != nil {
				return result, err
			}
			result.leaves = append(result.leaves, sub.leaves...)
		}
	}
	result.leaves = append(result.leaves, trace)
	return result, nil
}

func bestBranch(branches []body.ModeTrace, target body.Mode) (body.ModeTrace, bool) {
	var best body.ModeTrace
	bestLikelihood := 0.0
	found := false
	for _, b := range branches {
		eq, err := b.EndingMode().Equal(target)
		if err != nil || !eq {
			continue
		}
		if b.Likelihood() > bestLikelihood {
			best = b
			bestLikelihood = b.Likelihood()
			found = true
		}
	}
	return best, found
}

func (p PredictTiming) String() string {
	if p.ImpossiblePrediction {
		return "impossible prediction"
	}
	return fmt.Sprintf("%dns to target mode", p.NanosecondsToMode)
}
