package analysis

import (
	"errors"
	"math"
	"testing"
)

func TestNormalizeUnits(t *testing.T) {
	tests := []struct {
		name   string
		raw    []float64
		wantDT float64
	}{
		{"microseconds", []float64{2_000_000, 2_001_000, 2_002_000, 2_003_000}, 0.001},
		{"milliseconds", []float64{5_000, 5_002, 5_004, 5_006}, 0.002},
		{"seconds", []float64{10, 10.5, 11, 11.5}, 0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tm, clock, err := Normalize(tc.raw)
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if tm[0] != 0 {
				t.Errorf("time[0] = %g, want 0", tm[0])
			}
			if math.Abs(clock.DT-tc.wantDT) > 1e-12 {
				t.Errorf("DT = %g, want %g", clock.DT, tc.wantDT)
			}
			if math.Abs(clock.FS-1/tc.wantDT) > 1e-9 {
				t.Errorf("FS = %g, want %g", clock.FS, 1/tc.wantDT)
			}
			for i := 1; i < len(tm); i++ {
				if tm[i] <= tm[i-1] {
					t.Errorf("time not strictly increasing at %d: %g <= %g", i, tm[i], tm[i-1])
				}
			}
		})
	}
}

func TestNormalizeJitterUsesMeanInterval(t *testing.T) {
	// Jittery 1kHz clock in microseconds: the mean interval must come out
	// at 1ms even though individual gaps vary.
	raw := []float64{2_000_000, 2_000_900, 2_002_100, 2_002_950, 2_004_000}
	_, clock, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got := clock.DT; math.Abs(got-0.001) > 1e-12 {
		t.Errorf("DT = %g, want 0.001", got)
	}
}

func TestNormalizeErrors(t *testing.T) {
	if _, _, err := Normalize([]float64{42}); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("single sample: got %v, want ErrInsufficientData", err)
	}
	if _, _, err := Normalize(nil); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("nil input: got %v, want ErrInsufficientData", err)
	}
	if _, _, err := Normalize([]float64{5, 5}); !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("zero interval: got %v, want ErrInvalidSampleRate", err)
	}
	if _, _, err := Normalize([]float64{10, 4}); !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("decreasing time: got %v, want ErrInvalidSampleRate", err)
	}
}

func TestResampleUniformGrid(t *testing.T) {
	// Non-uniform spacing resampled onto a uniform grid of equal length.
	time := []float64{0, 0.8, 2.2, 3}
	values := []float64{0, 0.8, 2.2, 3} // identity ramp: y(t) = t

	grid, res, err := Resample(time, values)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if len(grid) != len(time) || len(res) != len(time) {
		t.Fatalf("length changed: grid=%d res=%d", len(grid), len(res))
	}
	step := grid[1] - grid[0]
	for i := 1; i < len(grid); i++ {
		if math.Abs((grid[i]-grid[i-1])-step) > 1e-12 {
			t.Errorf("grid not uniform at %d", i)
		}
	}
	if grid[0] != time[0] || grid[len(grid)-1] != time[len(time)-1] {
		t.Errorf("grid endpoints [%g, %g] do not match input [%g, %g]",
			grid[0], grid[len(grid)-1], time[0], time[len(time)-1])
	}
	for i := range res {
		if math.Abs(res[i]-grid[i]) > 1e-9 {
			t.Errorf("res[%d] = %g, want %g (linear ramp)", i, res[i], grid[i])
		}
	}
}

func TestResampleLengthMismatch(t *testing.T) {
	if _, _, err := Resample([]float64{0, 1, 2}, []float64{0, 1}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestResampleStalledClock(t *testing.T) {
	// A stalled logger clock duplicates a timestamp mid-series. The
	// duplicate sample is dropped rather than crashing the fit.
	time := []float64{0, 1, 1, 2, 3}
	values := []float64{0, 10, 99, 20, 30}

	grid, res, err := Resample(time, values)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if len(grid) != len(time) || len(res) != len(time) {
		t.Fatalf("length changed: grid=%d res=%d", len(grid), len(res))
	}
	for i := 1; i < len(grid); i++ {
		if grid[i] <= grid[i-1] {
			t.Errorf("grid not strictly increasing at %d", i)
		}
	}
	for i, v := range res {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("res[%d] = %g, want finite", i, v)
		}
	}
	// First occurrence wins: the fit passes through (1, 10), not (1, 99).
	if got := res[0]; got != 0 {
		t.Errorf("res[0] = %g, want 0", got)
	}
}

func TestResampleAllDuplicateTimestamps(t *testing.T) {
	if _, _, err := Resample([]float64{5, 5, 5}, []float64{1, 2, 3}); !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("constant time column: got %v, want ErrInvalidSampleRate", err)
	}
}
