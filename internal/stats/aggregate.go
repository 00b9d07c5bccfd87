package stats

import (
	"math"
	"time"
)

// WindowAggregate is derived fresh from the live sample set on each
// snapshot; it is never stored. RTT figures cover successes only; jitter
// is the population standard deviation of their RTTs.
type WindowAggregate struct {
	Count     int
	LossCount int
	LossRate  float64 // in [0,1]; 0 when Count == 0
	RTTMean   time.Duration
	RTTMin    time.Duration
	RTTMax    time.Duration
	Jitter    time.Duration
}

// aggregate computes the window statistics in one pass. RTT math runs in
// float64 microseconds: nanosecond squares overflow float64 precision over
// a full window.
func aggregate(samples []Sample) WindowAggregate {
	agg := WindowAggregate{Count: len(samples)}
	if len(samples) == 0 {
		return agg
	}

	var sum, sumSq float64
	var succ int
	var min, max time.Duration
	for _, s := range samples {
		if s.Loss {
			agg.LossCount++
			continue
		}
		v := float64(s.RTT) / float64(time.Microsecond)
		sum += v
		sumSq += v * v
		if succ == 0 || s.RTT < min {
			min = s.RTT
		}
		if succ == 0 || s.RTT > max {
			max = s.RTT
		}
		succ++
	}
	agg.LossRate = float64(agg.LossCount) / float64(agg.Count)
	if succ == 0 {
		return agg
	}

	n := float64(succ)
	mean := sum / n
	variance := (sumSq / n) - mean*mean
	if variance < 0 {
		variance = 0
	} // clamp tiny negatives
	agg.RTTMean = time.Duration(mean * float64(time.Microsecond))
	agg.RTTMin = min
	agg.RTTMax = max
	agg.Jitter = time.Duration(math.Sqrt(variance) * float64(time.Microsecond))
	return agg
}
