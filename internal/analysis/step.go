package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// pidInputScale ties the raw P-term error to an equivalent rate-of-change
// command, reconstructing what the controller intended to fly.
const pidInputScale = 0.032029

// StepConfig holds the step-response estimator parameters.
type StepConfig struct {
	FrameSeconds    float64 // analysis frame duration
	ResponseSeconds float64 // length of the recovered response curve
	Superpos        int     // overlapping frames per frame length
	CutoffHz        float64 // regularizer low-pass cutoff
	AmpFloor        float64 // frames peaking at or below carry no excitation
	AmpCeiling      float64 // frames peaking above go to the high-input aggregate
	MinUsefulFrames int     // below this the result is flagged unreliable
}

// DefaultStepConfig returns the production parameter set.
func DefaultStepConfig() StepConfig {
	return StepConfig{
		FrameSeconds:    1.0,
		ResponseSeconds: 0.5,
		Superpos:        16,
		CutoffHz:        25.0,
		AmpFloor:        20.0,
		AmpCeiling:      500.0,
		MinUsefulFrames: 100,
	}
}

// StepResponse is the aggregated closed-loop step response of one axis.
type StepResponse struct {
	Time   []float64 // response time axis, 0..ResponseSeconds
	Mean   []float64 // weighted-mode average response
	Spread []float64 // spread of the per-frame responses, a confidence band

	// HighMean is the aggregate over frames whose input amplitude exceeded
	// AmpCeiling. Nil unless at least minHighFrames such frames exist.
	HighMean []float64

	TotalFrames  int
	UsefulFrames int

	// Reliable reports whether enough frames carried usable excitation for
	// the mean curve to be trusted.
	Reliable bool
}

// minHighFrames is the floor below which the high-input aggregate is dropped
// as statistically meaningless.
const minHighFrames = 10

// EstimateStepResponse recovers the closed-loop unit-step response of one
// rotational axis from in-flight data. No artificial step input exists, so a
// synthetic input gyro + pErr/(pidInputScale*pGain) is deconvolved against
// the measured gyro rate over many overlapping frames, and the per-frame
// responses are combined with a weighted-mode average that rejects frames
// without meaningful stick movement.
//
// time must be a normalized, zero-based time axis in seconds (see Normalize);
// gyro and pErr are the measured rate and the P-term error on that axis.
func EstimateStepResponse(time, gyro, pErr []float64, pGain float64, cfg StepConfig) (*StepResponse, error) {
	if len(time) != len(gyro) || len(time) != len(pErr) {
		return nil, fmt.Errorf("analysis: column length mismatch: time=%d gyro=%d pErr=%d", len(time), len(gyro), len(pErr))
	}
	if len(time) < 2 {
		return nil, ErrInsufficientData
	}
	if pGain <= 0 {
		return nil, fmt.Errorf("analysis: P gain must be positive, got %g", pGain)
	}

	dt := meanInterval(time)
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, ErrInvalidSampleRate
	}
	fs := 1 / dt

	pidin := make([]float64, len(time))
	for i := range pidin {
		pidin[i] = gyro[i] + pErr[i]/(pidInputScale*pGain)
	}

	// Resample both signals onto the same uniform grid before framing.
	_, inputEq, err := Resample(time, pidin)
	if err != nil {
		return nil, err
	}
	_, outputEq, err := Resample(time, gyro)
	if err != nil {
		return nil, err
	}

	flen := FrameLen(cfg.FrameSeconds, fs)
	rlen := FrameLen(cfg.ResponseSeconds, fs)
	if flen <= 0 || rlen <= 0 {
		return nil, ErrInsufficientData
	}
	if rlen > flen {
		rlen = flen
	}

	taper := Hann(flen)
	inFrames, err := Stack(inputEq, flen, cfg.Superpos, taper)
	if err != nil {
		return nil, err
	}
	outFrames, err := Stack(outputEq, flen, cfg.Superpos, taper)
	if err != nil {
		return nil, err
	}
	wins := len(inFrames)
	if len(outFrames) < wins {
		wins = len(outFrames)
	}
	inFrames, outFrames = inFrames[:wins], outFrames[:wins]

	curves := wienerDeconvolve(inFrames, outFrames, dt, cfg.CutoffHz, rlen)

	useful := make([]float64, wins)
	high := make([]float64, wins)
	var usefulCount, highCount int
	for i, frame := range inFrames {
		maxIn := maxAbs(frame)
		switch {
		case maxIn > cfg.AmpCeiling:
			high[i] = 1
			highCount++
		case maxIn > cfg.AmpFloor:
			useful[i] = 1
			usefulCount++
		}
	}

	respTime := make([]float64, rlen)
	for i := range respTime {
		respTime[i] = float64(i) * dt
	}

	mean, spread := weightedModeAverage(curves, useful, rlen, -1.5, 3.5, 1000)

	var highMean []float64
	if highCount >= minHighFrames {
		highMean, _ = weightedModeAverage(curves, high, rlen, -1.5, 3.5, 1000)
	}

	return &StepResponse{
		Time:         respTime,
		Mean:         mean,
		Spread:       spread,
		HighMean:     highMean,
		TotalFrames:  wins,
		UsefulFrames: usefulCount,
		Reliable:     usefulCount >= cfg.MinUsefulFrames,
	}, nil
}

// wienerDeconvolve estimates the step response of each frame pair by
// regularized frequency-domain deconvolution followed by a cumulative sum of
// the recovered impulse-like response, truncated to rlen samples.
func wienerDeconvolve(inputs, outputs [][]float64, dt, cutoffHz float64, rlen int) [][]float64 {
	n := len(padBlock(inputs[0]))
	fft := fourier.NewFFT(n)
	reg := wienerRegularizer(n, dt, cutoffHz)

	curves := make([][]float64, len(inputs))
	for i := range inputs {
		h := fft.Coefficients(nil, padBlock(inputs[i]))
		g := fft.Coefficients(nil, padBlock(outputs[i]))

		d := make([]complex128, len(h))
		for k := range h {
			den := real(h[k])*real(h[k]) + imag(h[k])*imag(h[k]) + reg[k]
			d[k] = g[k] * cmplx.Conj(h[k]) / complex(den, 0)
		}

		// Sequence is unnormalized; scale by n while integrating the
		// impulse response into a step response.
		impulse := fft.Sequence(nil, d)
		curve := make([]float64, rlen)
		var acc float64
		for j := 0; j < rlen && j < len(impulse); j++ {
			acc += impulse[j] / float64(n)
			curve[j] = acc
		}
		curves[i] = curve
	}
	return curves
}

// wienerRegularizer builds the 1/sn term of the Wiener denominator for each
// real-FFT bin. The noise profile sn starts as a hard low-pass indicator at
// the cutoff, is Gaussian-smoothed with a width proportional to the
// transition length, renormalized, and rescaled so recovered content above
// the control bandwidth is strongly suppressed.
func wienerRegularizer(n int, dt, cutoffHz float64) []float64 {
	indicator := make([]float64, n)
	var below int
	for i := range indicator {
		k := i
		if k > n/2 {
			k = n - i
		}
		f := float64(k) / (float64(n) * dt)
		if f >= cutoffHz {
			indicator[i] = 1
		} else {
			below++
		}
	}

	sigma := math.Max(1, math.Round(float64(below)/6))
	smoothed := toMask(gaussianFilter1D(indicator, sigma, edgeReflect))

	reg := make([]float64, n/2+1)
	for k := range reg {
		sn := 10*(1-smoothed[k]) + 1e-8
		reg[k] = 1 / sn
	}
	return reg
}

// weightedModeAverage collapses per-frame response curves into a single
// representative curve. A 2D histogram of (time, value) is built across all
// retained frames, smoothed along the value axis, each time column normalized
// to its peak, and the column average taken with the squared column as the
// weight; squaring sharpens the mode against a broad, noisy distribution. The
// spread curve counts, per time column, the value range carrying more than
// threshold weight in the raw histogram.
func weightedModeAverage(curves [][]float64, weights []float64, cols int, lo, hi float64, bins int) (mean, spread []float64) {
	const (
		smoothSigma = 7.0
		threshold   = 0.5
	)

	mean = make([]float64, cols)
	spread = make([]float64, cols)

	hist := make([][]float64, bins)
	for v := range hist {
		hist[v] = make([]float64, cols)
	}

	var total float64
	for i, w := range weights {
		if w == 0 {
			continue
		}
		curve := curves[i]
		for t := 0; t < cols && t < len(curve); t++ {
			v := curve[t]
			if v < lo || v > hi {
				continue
			}
			vb := int((v - lo) / (hi - lo) * float64(bins))
			if vb == bins {
				vb = bins - 1
			}
			hist[vb][t] += w
			total += w
		}
	}
	if total == 0 {
		return mean, spread
	}

	respY := floats.Span(make([]float64, bins), lo, hi)
	cellWidth := threshold / (float64(bins) / (hi - lo))

	col := make([]float64, bins)
	for t := 0; t < cols; t++ {
		for v := range hist {
			col[v] = hist[v][t]
		}
		sm := gaussianFilter1D(col, smoothSigma, edgeConstant)
		if maxSm := floats.Max(sm); maxSm > 0 {
			for v := range sm {
				sm[v] /= maxSm
			}
		}

		var num, den float64
		for v := range sm {
			w2 := sm[v] * sm[v]
			num += respY[v] * w2
			den += w2
		}
		if den > 0 {
			mean[t] = num / den
		}

		var s float64
		for v := range hist {
			if hist[v][t] > threshold {
				s += cellWidth
			}
		}
		spread[t] = s
	}
	return mean, spread
}

func maxAbs(values []float64) float64 {
	var m float64
	for _, v := range values {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}
