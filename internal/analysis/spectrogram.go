package analysis

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SpectrogramConfig holds the short-time Fourier transform parameters. Zero
// values select the defaults: segments of min(1024, N) samples, 75% overlap,
// frequency axis up to Nyquist, unity gain, one second clipped at each end.
type SpectrogramConfig struct {
	NPerSeg     int
	NOverlap    int
	MaxFreq     float64 // Hz; 0 means Nyquist
	Gain        float64 // 0 means 1
	ClipSeconds float64
}

// DefaultSpectrogramConfig returns the production parameter set.
func DefaultSpectrogramConfig() SpectrogramConfig {
	return SpectrogramConfig{ClipSeconds: 1.0, Gain: 1.0}
}

// Spectrogram is a time-varying spectral magnitude surface.
type Spectrogram struct {
	Time      []float64   // segment center times, seconds into the log
	Freq      []float64   // Hz, limited to MaxFreq
	Magnitude [][]float64 // Magnitude[timeIdx][freqIdx], density-scaled
}

// EstimateSpectrogram computes a short-time Fourier transform of one channel.
// The first and last ClipSeconds of the series are discarded to drop start-up
// and landing transients; a series too short to survive the clip reports
// ErrInsufficientData.
//
// time must be a normalized, zero-based time axis in seconds.
func EstimateSpectrogram(time, values []float64, cfg SpectrogramConfig) (*Spectrogram, error) {
	if len(time) != len(values) || len(time) < 2 {
		return nil, ErrInsufficientData
	}

	clip := cfg.ClipSeconds
	tMax := time[len(time)-1]
	lo, hi := 0, len(time)
	for lo < len(time) && time[lo] <= clip {
		lo++
	}
	for hi > lo && time[hi-1] >= tMax-clip {
		hi--
	}
	if hi-lo < 2 {
		return nil, ErrInsufficientData
	}
	ct, cv := time[lo:hi], values[lo:hi]

	dt := meanInterval(ct)
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, ErrInvalidSampleRate
	}
	fs := 1 / dt

	nperseg := cfg.NPerSeg
	if nperseg <= 0 {
		nperseg = 1024
	}
	if nperseg > len(cv) {
		nperseg = len(cv)
	}
	noverlap := cfg.NOverlap
	if noverlap <= 0 {
		noverlap = nperseg * 3 / 4
	}
	if noverlap >= nperseg {
		noverlap = nperseg - 1
	}
	step := nperseg - noverlap

	maxFreq := cfg.MaxFreq
	if maxFreq <= 0 {
		maxFreq = fs / 2
	}
	gain := cfg.Gain
	if gain == 0 {
		gain = 1
	}

	taper := Hann(nperseg)
	var taperPower float64
	for _, w := range taper {
		taperPower += w * w
	}
	scale := 1 / (fs * taperPower)

	allFreqs := rfftFreqs(nperseg, dt)
	nbins := 0
	for _, f := range allFreqs {
		if f > maxFreq {
			break
		}
		nbins++
	}
	if nbins == 0 {
		return nil, ErrInsufficientData
	}

	fft := fourier.NewFFT(nperseg)
	seg := make([]float64, nperseg)
	var times []float64
	var magnitude [][]float64

	for off := 0; off+nperseg <= len(cv); off += step {
		for i := range seg {
			seg[i] = cv[off+i] * taper[i]
		}
		cs := fft.Coefficients(nil, seg)

		row := make([]float64, nbins)
		for k := 0; k < nbins; k++ {
			p := real(cs[k])*real(cs[k]) + imag(cs[k])*imag(cs[k])
			p *= scale
			if k != 0 && !(k == len(allFreqs)-1 && nperseg%2 == 0) {
				p *= 2
			}
			row[k] = p * gain
		}
		magnitude = append(magnitude, row)
		times = append(times, ct[off+nperseg/2])
	}
	if len(magnitude) == 0 {
		return nil, ErrInsufficientData
	}

	return &Spectrogram{
		Time:      times,
		Freq:      allFreqs[:nbins],
		Magnitude: magnitude,
	}, nil
}
