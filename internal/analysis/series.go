package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// SampleClock describes the uniform sampling grid derived from a time column.
type SampleClock struct {
	DT float64 // mean inter-sample interval in seconds
	FS float64 // sample rate in Hz, 1/DT
}

// Normalize converts a raw log time column into zero-based seconds and derives
// the sample clock. The source unit is detected heuristically: values above
// 1e6 are treated as microseconds, above 1e3 as milliseconds, otherwise the
// column is assumed to be in seconds already.
//
// The interval is the mean of consecutive differences rather than the min or
// max, which keeps it robust to small scheduler jitter in the log.
func Normalize(raw []float64) ([]float64, SampleClock, error) {
	if len(raw) < 2 {
		return nil, SampleClock{}, ErrInsufficientData
	}

	maxT := raw[0]
	for _, t := range raw {
		if t > maxT {
			maxT = t
		}
	}

	scale := 1.0
	switch {
	case maxT > 1e6:
		scale = 1e6
	case maxT > 1e3:
		scale = 1e3
	}

	t := make([]float64, len(raw))
	for i, v := range raw {
		t[i] = v / scale
	}
	base := t[0]
	for i := range t {
		t[i] -= base
	}

	dt := meanInterval(t)
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, SampleClock{}, ErrInvalidSampleRate
	}

	return t, SampleClock{DT: dt, FS: 1 / dt}, nil
}

// Resample interpolates values onto a uniform time grid spanning the same
// range with the same number of samples, removing timing jitter before
// windowed analysis. The returned grid starts at time[0] and ends at
// time[len-1].
func Resample(time, values []float64) (grid, resampled []float64, err error) {
	if len(time) != len(values) {
		return nil, nil, fmt.Errorf("analysis: time and values length mismatch: %d != %d", len(time), len(values))
	}
	if len(time) < 2 {
		return nil, nil, ErrInsufficientData
	}

	// Logger clocks occasionally stall or step backwards for a sample;
	// the interpolator requires strictly increasing support, so such
	// samples are dropped (first occurrence wins) before fitting.
	xs, ys := time, values
	if !strictlyIncreasing(time) {
		xs, ys = dropNonIncreasing(time, values)
		if len(xs) < 2 {
			return nil, nil, ErrInvalidSampleRate
		}
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidSampleRate, err)
	}

	n := len(time)
	step := (time[n-1] - time[0]) / float64(n-1)
	grid = make([]float64, n)
	resampled = make([]float64, n)
	for i := range grid {
		x := time[0] + float64(i)*step
		grid[i] = x
		resampled[i] = pl.Predict(x)
	}

	// Keep the endpoints exact; accumulated rounding in the grid must not
	// push the last point outside the fitted range.
	grid[n-1] = time[n-1]
	resampled[n-1] = values[n-1]
	return grid, resampled, nil
}

func strictlyIncreasing(time []float64) bool {
	for i := 1; i < len(time); i++ {
		if time[i] <= time[i-1] {
			return false
		}
	}
	return true
}

// dropNonIncreasing returns the subsequence of (time, values) whose time
// strictly increases, keeping the first sample at each stalled timestamp.
func dropNonIncreasing(time, values []float64) (xs, ys []float64) {
	xs = make([]float64, 0, len(time))
	ys = make([]float64, 0, len(values))
	for i := range time {
		if len(xs) > 0 && time[i] <= xs[len(xs)-1] {
			continue
		}
		xs = append(xs, time[i])
		ys = append(ys, values[i])
	}
	return xs, ys
}

func meanInterval(time []float64) float64 {
	if len(time) < 2 {
		return 0
	}
	return (time[len(time)-1] - time[0]) / float64(len(time)-1)
}
