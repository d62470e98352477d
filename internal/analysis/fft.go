package analysis

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// fftBlock is the padding granularity for windowed transforms. Frames are
// zero-padded to the next multiple of this block, always by at least one
// sample, so that frame length never dictates transform resolution.
const fftBlock = 1024

// padBlock returns x zero-padded to the next multiple of fftBlock.
func padBlock(x []float64) []float64 {
	pad := fftBlock - len(x)%fftBlock
	out := make([]float64, len(x)+pad)
	copy(out, x)
	return out
}

// rfftFreqs returns the frequency axis in Hz for a real transform of n
// samples spaced dt seconds apart: k/(n*dt) for k = 0..n/2.
func rfftFreqs(n int, dt float64) []float64 {
	freqs := make([]float64, n/2+1)
	for k := range freqs {
		freqs[k] = float64(k) / (float64(n) * dt)
	}
	return freqs
}

// spectrum transforms a set of equal-length frames into orthonormally scaled
// real-FFT coefficients after block padding. Returns the frequency axis and
// one coefficient row per frame.
func spectrum(frames [][]float64, dt float64) (freqs []float64, coeffs [][]complex128) {
	if len(frames) == 0 {
		return nil, nil
	}

	n := len(padBlock(frames[0]))
	fft := fourier.NewFFT(n)
	scale := complex(1/math.Sqrt(float64(n)), 0)

	coeffs = make([][]complex128, len(frames))
	for i, frame := range frames {
		cs := fft.Coefficients(nil, padBlock(frame))
		for k := range cs {
			cs[k] *= scale
		}
		coeffs[i] = cs
	}
	return rfftFreqs(n, dt), coeffs
}
