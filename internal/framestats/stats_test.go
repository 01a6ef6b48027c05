package framestats

import (
	"math"
	"testing"
	"testing/quick"
	"time"
)

func regularFrames(start time.Time, n int, interval time.Duration) []time.Time {
	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * interval)
	}
	return times
}

// TestCalculate_RegularStreamIsStable verifies a perfectly paced stream.
//
// Property: constant intervals → zero stddev, zero jitter, IsStable.
func TestCalculate_RegularStreamIsStable(t *testing.T) {
	times := regularFrames(time.Unix(0, 0), 30, 100*time.Millisecond)
	stats := Calculate(times, 3*time.Second)

	if math.Abs(stats.FPSMean-10) > 1e-9 {
		t.Errorf("FPSMean = %.4f, want 10", stats.FPSMean)
	}
	if stats.FPSStdDev > 1e-6 || stats.JitterMean > 1e-9 {
		t.Errorf("expected no deviation, got stddev=%.6f jitter=%.6f", stats.FPSStdDev, stats.JitterMean)
	}
	if !stats.IsStable {
		t.Error("regular stream reported unstable")
	}
}

// TestCalculate_AlternatingIntervalsAreUnstable verifies the stability threshold.
//
// Property: intervals alternating 0.5s/1.5s put stddev far above 15% of mean.
func TestCalculate_AlternatingIntervalsAreUnstable(t *testing.T) {
	start := time.Unix(0, 0)
	times := []time.Time{start}
	for i := 1; i < 20; i++ {
		step := 500 * time.Millisecond
		if i%2 == 0 {
			step = 1500 * time.Millisecond
		}
		times = append(times, times[i-1].Add(step))
	}

	stats := Calculate(times, 20*time.Second)
	if stats.IsStable {
		t.Errorf("alternating stream reported stable (stddev %.2f, jitter %.3fs)", stats.FPSStdDev, stats.JitterMean)
	}
	if stats.FPSMax <= stats.FPSMin {
		t.Errorf("FPSMax %.2f <= FPSMin %.2f", stats.FPSMax, stats.FPSMin)
	}
}

// TestCalculate_EdgeCases verifies degenerate inputs do not panic.
func TestCalculate_EdgeCases(t *testing.T) {
	now := time.Unix(100, 0)
	tests := []struct {
		name     string
		times    []time.Time
		window   time.Duration
		wantMean float64
	}{
		{"no frames", nil, time.Second, 0},
		{"one frame", []time.Time{now}, time.Second, 1},
		{"one frame zero window", []time.Time{now}, 0, 0},
		{"identical timestamps", []time.Time{now, now, now}, time.Second, 3},
		{"window from span", regularFrames(now, 5, 250*time.Millisecond), 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := Calculate(tt.times, tt.window)
			if stats.FramesReceived != len(tt.times) {
				t.Errorf("FramesReceived = %d, want %d", stats.FramesReceived, len(tt.times))
			}
			if math.Abs(stats.FPSMean-tt.wantMean) > 1e-9 {
				t.Errorf("FPSMean = %.4f, want %.4f", stats.FPSMean, tt.wantMean)
			}
			if len(tt.times) < 2 && stats.IsStable {
				t.Error("fewer than two frames reported stable")
			}
		})
	}
}

// TestCalculate_Property_Bounds checks invariants over random regular streams.
//
// Property: FPSMin <= FPSMean <= FPSMax and all deviations are non-negative.
func TestCalculate_Property_Bounds(t *testing.T) {
	f := func(intervalMs uint16, n uint8) bool {
		if intervalMs < 5 || n < 2 {
			return true
		}
		interval := time.Duration(intervalMs) * time.Millisecond
		times := regularFrames(time.Unix(0, 0), int(n), interval)
		stats := Calculate(times, time.Duration(n)*interval)

		const tolerance = 1e-6
		if stats.FPSMin > stats.FPSMean+tolerance || stats.FPSMax < stats.FPSMean-tolerance {
			t.Logf("FAIL: min %.4f mean %.4f max %.4f", stats.FPSMin, stats.FPSMean, stats.FPSMax)
			return false
		}
		if stats.FPSStdDev < 0 || stats.JitterMean < 0 || stats.JitterMax < stats.JitterMean-tolerance {
			t.Logf("FAIL: negative deviation or JitterMax < JitterMean: %+v", stats)
			return false
		}
		return true
	}

	if err := quick.Check(f, &quick.Config{MaxCount: 100}); err != nil {
		t.Errorf("Property violated: %v", err)
	}
}
