package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// throttleBins is the fixed resolution of the throttle axis, one bin per
// percent over [0, 100].
const throttleBins = 101

// NoiseConfig holds the throttle-binned noise analyzer parameters.
type NoiseConfig struct {
	FrameSeconds float64 // analysis frame duration
	Superpos     int     // overlapping frames per frame length
	SmoothSigma  float64 // Gaussian width along the frequency axis, bins
	Gain         float64 // output magnitude multiplier
}

// DefaultNoiseConfig returns the production parameter set.
func DefaultNoiseConfig() NoiseConfig {
	return NoiseConfig{
		FrameSeconds: 0.3,
		Superpos:     16,
		SmoothSigma:  3,
		Gain:         1,
	}
}

// NoiseMap is a throttle-binned spectral noise histogram: mean per-frame
// spectral magnitude of a signal, binned by the mean throttle of the frame.
type NoiseMap struct {
	Throttle []float64   // throttle bin edges, 0..100, len throttleBins+1
	Freq     []float64   // frequency bin start values, Hz
	Power    [][]float64 // Power[freqBin][throttleBin], smoothed and gain-scaled

	// Max is the largest smoothed cell value, for consistent color-scale
	// normalization across several maps drawn side by side.
	Max    float64
	Frames int
}

// EstimateNoise builds a throttle × frequency noise map for one signal
// channel paired with a throttle channel in percent. Frames without any
// samples in a throttle bin leave that bin exactly zero.
//
// time must be a normalized, zero-based time axis in seconds.
func EstimateNoise(time, signal, throttle []float64, cfg NoiseConfig) (*NoiseMap, error) {
	if len(time) != len(signal) || len(time) != len(throttle) {
		return nil, fmt.Errorf("analysis: column length mismatch: time=%d signal=%d throttle=%d", len(time), len(signal), len(throttle))
	}
	if len(time) < 2 {
		return nil, ErrInsufficientData
	}

	dt := meanInterval(time)
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, ErrInvalidSampleRate
	}

	flen := FrameLen(cfg.FrameSeconds, 1/dt)
	taper := Hann(flen)
	sigFrames, err := Stack(signal, flen, cfg.Superpos, taper)
	if err != nil {
		return nil, err
	}
	thrFrames, err := Stack(throttle, flen, cfg.Superpos, nil)
	if err != nil {
		return nil, err
	}
	wins := len(sigFrames)
	if len(thrFrames) < wins {
		wins = len(thrFrames)
	}

	freqs, coeffs := spectrum(sigFrames[:wins], dt)
	nfreq := len(freqs)
	freqBins := nfreq / 4
	if freqBins == 0 {
		return nil, ErrInsufficientData
	}

	// Per-frame mean throttle decides the throttle bin; the per-bin frame
	// count is kept for normalization.
	binOf := func(mt float64) int {
		if mt < 0 || mt > 100 {
			return -1
		}
		b := int(mt / 100 * throttleBins)
		if b == throttleBins {
			b = throttleBins - 1
		}
		return b
	}

	counts := make([]float64, throttleBins)
	power := make([][]float64, freqBins)
	for fb := range power {
		power[fb] = make([]float64, throttleBins)
	}

	freqSpan := freqs[nfreq-1] - freqs[0]
	for i := 0; i < wins; i++ {
		tb := binOf(floats.Sum(thrFrames[i]) / float64(flen))
		if tb < 0 {
			continue
		}
		counts[tb]++
		for k, c := range coeffs[i] {
			fb := int((freqs[k] - freqs[0]) / freqSpan * float64(freqBins))
			if fb >= freqBins {
				fb = freqBins - 1
			}
			power[fb][tb] += math.Abs(real(c))
		}
	}

	for tb, n := range counts {
		if n == 0 {
			continue
		}
		for fb := range power {
			power[fb][tb] /= n
		}
	}

	// Smooth each throttle column along the frequency axis, then apply gain.
	gain := cfg.Gain
	if gain == 0 {
		gain = 1
	}
	col := make([]float64, freqBins)
	maxVal := 0.0
	for tb := 0; tb < throttleBins; tb++ {
		for fb := range col {
			col[fb] = power[fb][tb]
		}
		sm := gaussianFilter1D(col, cfg.SmoothSigma, edgeConstant)
		for fb := range sm {
			v := sm[fb] * gain
			power[fb][tb] = v
			if v > maxVal {
				maxVal = v
			}
		}
	}

	edges := floats.Span(make([]float64, throttleBins+1), 0, 100)
	freqAxis := make([]float64, freqBins)
	for fb := range freqAxis {
		freqAxis[fb] = freqs[0] + float64(fb)*freqSpan/float64(freqBins)
	}

	return &NoiseMap{
		Throttle: edges,
		Freq:     freqAxis,
		Power:    power,
		Max:      maxVal,
		Frames:   wins,
	}, nil
}
