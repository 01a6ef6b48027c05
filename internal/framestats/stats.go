package framestats

import (
	"math"
	"time"
)

const (
	// fpsStabilityThreshold bounds the instantaneous FPS stddev as a
	// fraction of the mean. 30 FPS is stable below 4.5 FPS stddev.
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold bounds the mean jitter as a fraction of
	// the expected inter-frame interval. 30 FPS is stable below 6.6ms.
	jitterStabilityThreshold = 0.20
)

// FPSStats summarizes frame arrival times over a window.
type FPSStats struct {
	FramesReceived int
	Duration       time.Duration

	FPSMean   float64
	FPSStdDev float64
	FPSMin    float64
	FPSMax    float64

	// Jitter is |actual interval - expected interval|, in seconds.
	JitterMean   float64
	JitterStdDev float64
	JitterMax    float64

	IsStable bool
}

// Calculate derives FPSStats from ordered frame timestamps observed
// over window. A non-positive window falls back to the span between
// the first and last timestamp.
//
// Stable means FPS stddev < 15% of mean AND mean jitter < 20% of the
// expected interval.
func Calculate(frameTimes []time.Time, window time.Duration) *FPSStats {
	n := len(frameTimes)
	stats := &FPSStats{FramesReceived: n, Duration: window}
	if n == 0 {
		return stats
	}

	if window <= 0 && n > 1 {
		window = frameTimes[n-1].Sub(frameTimes[0])
		stats.Duration = window
	}
	if window <= 0 {
		return stats
	}
	stats.FPSMean = float64(n) / window.Seconds()

	intervals := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		intervals = append(intervals, frameTimes[i].Sub(frameTimes[i-1]).Seconds())
	}

	instantaneous := make([]float64, 0, len(intervals))
	for _, iv := range intervals {
		if iv > 0 {
			instantaneous = append(instantaneous, 1.0/iv)
		}
	}
	if len(instantaneous) == 0 {
		return stats
	}

	stats.FPSMin, stats.FPSMax = minMax(instantaneous)
	stats.FPSStdDev = deviationAround(instantaneous, stats.FPSMean)

	expected := 1.0 / stats.FPSMean
	jitters := make([]float64, len(intervals))
	for i, iv := range intervals {
		jitters[i] = math.Abs(iv - expected)
	}
	stats.JitterMean = mean(jitters)
	_, stats.JitterMax = minMax(jitters)
	stats.JitterStdDev = deviationAround(jitters, stats.JitterMean)

	stats.IsStable = stats.FPSStdDev < stats.FPSMean*fpsStabilityThreshold &&
		stats.JitterMean < expected*jitterStabilityThreshold

	return stats
}

func minMax(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// deviationAround is the population standard deviation of values
// around center, which need not be their own mean.
func deviationAround(values []float64, center float64) float64 {
	var sumSquares float64
	for _, v := range values {
		d := v - center
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}
