package analysis

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// WelchConfig holds the averaged-periodogram parameters. Zero values select
// the defaults: segments of min(1024, N) samples with 50% overlap.
type WelchConfig struct {
	NPerSeg  int
	NOverlap int
}

// PSD is a Welch power spectral density estimate in decibels.
type PSD struct {
	Freq    []float64 // 0..Nyquist, Hz
	PowerDB []float64 // 10*log10(density + 1e-10)
}

// EstimatePSD computes a Welch power spectral density for one channel:
// overlapping Hann-tapered segments are transformed and their periodograms
// averaged. No amplitude masking is applied; unlike the step-response path the
// PSD is meant to represent the whole signal.
func EstimatePSD(values []float64, fs float64, cfg WelchConfig) (*PSD, error) {
	if fs <= 0 || math.IsNaN(fs) || math.IsInf(fs, 0) {
		return nil, ErrInvalidSampleRate
	}
	if len(values) < 2 {
		return nil, ErrInsufficientData
	}

	nperseg := cfg.NPerSeg
	if nperseg <= 0 {
		nperseg = 1024
	}
	if nperseg > len(values) {
		nperseg = len(values)
	}
	noverlap := cfg.NOverlap
	if noverlap <= 0 {
		noverlap = nperseg / 2
	}
	if noverlap >= nperseg {
		noverlap = nperseg - 1
	}
	step := nperseg - noverlap

	taper := Hann(nperseg)
	var taperPower float64
	for _, w := range taper {
		taperPower += w * w
	}

	fft := fourier.NewFFT(nperseg)
	nbins := nperseg/2 + 1
	psd := make([]float64, nbins)

	var segments int
	seg := make([]float64, nperseg)
	for off := 0; off+nperseg <= len(values); off += step {
		for i := range seg {
			seg[i] = values[off+i] * taper[i]
		}
		cs := fft.Coefficients(nil, seg)
		for k, c := range cs {
			p := real(c)*real(c) + imag(c)*imag(c)
			psd[k] += p
		}
		segments++
	}
	if segments == 0 {
		return nil, ErrInsufficientData
	}

	// Density scaling with one-sided doubling; DC and (for even segment
	// lengths) Nyquist bins hold the full power already.
	scale := 1 / (fs * taperPower * float64(segments))
	for k := range psd {
		psd[k] *= scale
		if k != 0 && !(k == nbins-1 && nperseg%2 == 0) {
			psd[k] *= 2
		}
	}

	powerDB := make([]float64, nbins)
	for k, p := range psd {
		powerDB[k] = 10 * math.Log10(p+1e-10)
	}

	return &PSD{
		Freq:    rfftFreqs(nperseg, 1/fs),
		PowerDB: powerDB,
	}, nil
}
