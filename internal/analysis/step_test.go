package analysis

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestWienerRegularizer(t *testing.T) {
	const (
		n  = 1024
		dt = 0.001
	)
	reg := wienerRegularizer(n, dt, 25)
	if len(reg) != n/2+1 {
		t.Fatalf("len = %d, want %d", len(reg), n/2+1)
	}
	// Light regularization inside the control bandwidth, heavy above it.
	if reg[0] > 0.2 {
		t.Errorf("reg at DC = %g, want <= 0.2", reg[0])
	}
	if reg[n/2] < 1e6 {
		t.Errorf("reg at Nyquist = %g, want >= 1e6", reg[n/2])
	}
	if reg[0] >= reg[n/2] {
		t.Errorf("regularization does not grow with frequency: %g >= %g", reg[0], reg[n/2])
	}
	for k, v := range reg {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("reg[%d] = %g, want finite positive", k, v)
		}
	}
}

func TestWeightedModeAverage(t *testing.T) {
	const cols = 50

	flat := func(v float64) []float64 {
		c := make([]float64, cols)
		for i := range c {
			c[i] = v
		}
		return c
	}

	// Nine agreeing curves plus one wild outlier with zero weight: the
	// outlier must not move the mode.
	curves := make([][]float64, 10)
	weights := make([]float64, 10)
	for i := 0; i < 9; i++ {
		curves[i] = flat(1.0)
		weights[i] = 1
	}
	curves[9] = flat(3.0)
	weights[9] = 0

	mean, spread := weightedModeAverage(curves, weights, cols, -1.5, 3.5, 1000)
	for tc := range mean {
		if math.Abs(mean[tc]-1.0) > 0.02 {
			t.Errorf("mean[%d] = %g, want 1.0 +/- 0.02", tc, mean[tc])
		}
		if spread[tc] < 0 || spread[tc] > 0.05 {
			t.Errorf("spread[%d] = %g, want tight band", tc, spread[tc])
		}
	}
}

func TestWeightedModeAverageAllZeroWeights(t *testing.T) {
	curves := [][]float64{{1, 1, 1}, {2, 2, 2}}
	mean, spread := weightedModeAverage(curves, []float64{0, 0}, 3, -1.5, 3.5, 1000)
	for i := range mean {
		if mean[i] != 0 || spread[i] != 0 {
			t.Errorf("mean[%d]=%g spread[%d]=%g, want zeros with no retained frames", i, mean[i], i, spread[i])
		}
	}
}

func TestEstimateStepResponseErrors(t *testing.T) {
	tm := []float64{0, 0.001, 0.002}
	sig := []float64{0, 1, 2}

	if _, err := EstimateStepResponse(tm, sig, []float64{0, 1}, 40, DefaultStepConfig()); err == nil {
		t.Error("expected error for mismatched column lengths")
	}
	if _, err := EstimateStepResponse(tm, sig, sig, 0, DefaultStepConfig()); err == nil {
		t.Error("expected error for non-positive P gain")
	}
	if _, err := EstimateStepResponse([]float64{0}, []float64{0}, []float64{0}, 40, DefaultStepConfig()); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("single sample: got %v, want ErrInsufficientData", err)
	}
	// One second yields zero frames for one-second windows at superpos 16.
	short := make([]float64, 1000)
	for i := range short {
		short[i] = float64(i) * 0.001
	}
	zeros := make([]float64, 1000)
	if _, err := EstimateStepResponse(short, zeros, zeros, 40, DefaultStepConfig()); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("short series: got %v, want ErrInsufficientData", err)
	}
}

// TestEstimateStepResponseFirstOrder feeds the estimator a simulated
// closed-loop first-order axis (time constant 30ms) excited by a random
// telegraph setpoint and checks that the recovered curve looks like the
// true step response: rises through 0.5 near tau*ln(2) and settles at 1.
func TestEstimateStepResponseFirstOrder(t *testing.T) {
	const (
		n     = 10000
		dt    = 0.001
		tau   = 0.030
		pGain = 40.0
	)

	rng := rand.New(rand.NewSource(42))

	setpoint := make([]float64, n)
	level := 200.0
	next := 0
	for i := range setpoint {
		if i >= next {
			amp := 150 + 150*rng.Float64()
			if rng.Intn(2) == 0 {
				amp = -amp
			}
			level = amp
			next = i + 20 + rng.Intn(100)
		}
		setpoint[i] = level
	}

	// Exact discretization of y' = (u - y) / tau for piecewise-constant u.
	gyro := make([]float64, n)
	decay := math.Exp(-dt / tau)
	for i := 1; i < n; i++ {
		gyro[i] = setpoint[i-1] + (gyro[i-1]-setpoint[i-1])*decay
	}

	// P-term error scaled so the reconstructed input equals the setpoint.
	pErr := make([]float64, n)
	for i := range pErr {
		pErr[i] = (setpoint[i] - gyro[i]) * pidInputScale * pGain
	}

	tm := make([]float64, n)
	for i := range tm {
		tm[i] = float64(i) * dt
	}

	resp, err := EstimateStepResponse(tm, gyro, pErr, pGain, DefaultStepConfig())
	if err != nil {
		t.Fatalf("EstimateStepResponse failed: %v", err)
	}

	if resp.TotalFrames != 145 {
		t.Errorf("TotalFrames = %d, want 145", resp.TotalFrames)
	}
	if resp.UsefulFrames < resp.TotalFrames/2 {
		t.Errorf("UsefulFrames = %d of %d, want at least half", resp.UsefulFrames, resp.TotalFrames)
	}
	if !resp.Reliable {
		t.Errorf("Reliable = false with %d useful frames", resp.UsefulFrames)
	}
	if resp.HighMean != nil {
		t.Errorf("HighMean set, but no frame exceeds the amplitude ceiling")
	}
	if len(resp.Time) != 500 || len(resp.Mean) != 500 || len(resp.Spread) != 500 {
		t.Fatalf("curve lengths = %d/%d/%d, want 500", len(resp.Time), len(resp.Mean), len(resp.Spread))
	}
	if math.Abs(resp.Time[1]-resp.Time[0]-dt) > 1e-9 {
		t.Errorf("response time step = %g, want %g", resp.Time[1]-resp.Time[0], dt)
	}

	// Settles at unity: a closed loop tracking its setpoint.
	var plateau float64
	for i := 400; i < 500; i++ {
		plateau += resp.Mean[i]
	}
	plateau /= 100
	if plateau < 0.8 || plateau > 1.2 {
		t.Errorf("plateau = %g, want within [0.8, 1.2]", plateau)
	}

	// Crosses one-half near tau*ln(2) ~ 21ms; the regularizer's low-pass
	// smears the rise, so the window is wide.
	t50 := -1.0
	for i, v := range resp.Mean {
		if v >= 0.5 {
			t50 = resp.Time[i]
			break
		}
	}
	if t50 < 0.005 || t50 > 0.045 {
		t.Errorf("t50 = %g, want within [0.005, 0.045]", t50)
	}

	peak := 0.0
	for _, v := range resp.Mean {
		if v > peak {
			peak = v
		}
	}
	if peak < 0.7 || peak > 1.5 {
		t.Errorf("peak = %g, want within [0.7, 1.5]", peak)
	}

	for i, s := range resp.Spread {
		if s < 0 || math.IsNaN(s) {
			t.Fatalf("Spread[%d] = %g, want finite non-negative", i, s)
		}
	}
}

func TestEstimateStepResponseStalledClock(t *testing.T) {
	// A stalled logger clock duplicates a timestamp mid-flight. The
	// estimator must survive the resulting non-monotonic time axis and
	// return a normal estimate.
	const (
		n  = 10000
		dt = 0.001
	)
	tm := make([]float64, n)
	gyro := make([]float64, n)
	pErr := make([]float64, n)
	for i := range tm {
		tm[i] = float64(i) * dt
		gyro[i] = 100 * math.Sin(2*math.Pi*2*tm[i])
	}
	tm[5000] = tm[4999]

	resp, err := EstimateStepResponse(tm, gyro, pErr, 40, DefaultStepConfig())
	if err != nil {
		t.Fatalf("EstimateStepResponse failed: %v", err)
	}
	if resp.TotalFrames != 145 {
		t.Errorf("TotalFrames = %d, want 145", resp.TotalFrames)
	}
	for i, v := range resp.Mean {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("Mean[%d] = %g, want finite", i, v)
		}
	}
}

func TestEstimateStepResponseQuietLog(t *testing.T) {
	// Every frame peaks below the amplitude floor: no frame counts as
	// useful, the result is unreliable and the mean stays zero.
	const (
		n  = 10000
		dt = 0.001
	)
	tm := make([]float64, n)
	gyro := make([]float64, n)
	pErr := make([]float64, n)
	for i := range tm {
		tm[i] = float64(i) * dt
		gyro[i] = 5 * math.Sin(2*math.Pi*3*tm[i])
	}

	resp, err := EstimateStepResponse(tm, gyro, pErr, 40, DefaultStepConfig())
	if err != nil {
		t.Fatalf("EstimateStepResponse failed: %v", err)
	}
	if resp.UsefulFrames != 0 {
		t.Errorf("UsefulFrames = %d, want 0 below the amplitude floor", resp.UsefulFrames)
	}
	if resp.Reliable {
		t.Error("Reliable = true with no useful frames")
	}
	if resp.HighMean != nil {
		t.Error("HighMean set with no high-amplitude frames")
	}
	for i := range resp.Mean {
		if resp.Mean[i] != 0 || resp.Spread[i] != 0 {
			t.Fatalf("Mean[%d]=%g Spread[%d]=%g, want zeros with no retained frames",
				i, resp.Mean[i], i, resp.Spread[i])
		}
	}
}

func TestEstimateStepResponseHighAmplitude(t *testing.T) {
	// Three regimes in one log: moderate flips (useful), violent flips
	// above the amplitude ceiling (high), and a near-still tail below the
	// floor. The high frames must populate HighMean and neither the high
	// nor the quiet frames may count as useful.
	const (
		n  = 12000
		dt = 0.001
	)
	tm := make([]float64, n)
	gyro := make([]float64, n)
	pErr := make([]float64, n)
	for i := range tm {
		tm[i] = float64(i) * dt
		sign := 1.0
		if (i/50)%2 == 1 {
			sign = -1
		}
		switch {
		case i < 4000:
			gyro[i] = sign * 250
		case i < 8000:
			gyro[i] = sign * 600
		default:
			gyro[i] = sign * 5
		}
	}

	resp, err := EstimateStepResponse(tm, gyro, pErr, 40, DefaultStepConfig())
	if err != nil {
		t.Fatalf("EstimateStepResponse failed: %v", err)
	}
	if resp.TotalFrames != 177 {
		t.Errorf("TotalFrames = %d, want 177", resp.TotalFrames)
	}
	if resp.HighMean == nil {
		t.Fatal("HighMean = nil, want aggregate over frames above the ceiling")
	}
	if len(resp.HighMean) != 500 {
		t.Fatalf("len(HighMean) = %d, want 500", len(resp.HighMean))
	}
	for i, v := range resp.HighMean {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("HighMean[%d] = %g, want finite", i, v)
		}
	}
	if resp.UsefulFrames == 0 {
		t.Error("UsefulFrames = 0, want the moderate frames counted")
	}
	// Both the violent middle and the quiet tail fall outside the useful
	// band, so well over a quarter of the frames are excluded.
	if resp.UsefulFrames > resp.TotalFrames-40 {
		t.Errorf("UsefulFrames = %d of %d, want high and quiet frames excluded",
			resp.UsefulFrames, resp.TotalFrames)
	}
}

func TestMaxAbs(t *testing.T) {
	if got := maxAbs([]float64{-3, 1, 2}); got != 3 {
		t.Errorf("maxAbs = %g, want 3", got)
	}
	if got := maxAbs(nil); got != 0 {
		t.Errorf("maxAbs(nil) = %g, want 0", got)
	}
}
