package analysis

import (
	"errors"
	"math"
	"testing"
)

func sineLog(seconds, fs, sineHz float64) (tm, values []float64) {
	n := int(seconds * fs)
	tm = make([]float64, n)
	values = make([]float64, n)
	for i := range tm {
		tm[i] = float64(i) / fs
		values[i] = math.Sin(2 * math.Pi * sineHz * tm[i])
	}
	return tm, values
}

func TestEstimateSpectrogramSine(t *testing.T) {
	tm, values := sineLog(10, 1000, 100)

	sg, err := EstimateSpectrogram(tm, values, DefaultSpectrogramConfig())
	if err != nil {
		t.Fatalf("EstimateSpectrogram failed: %v", err)
	}

	if len(sg.Magnitude) != len(sg.Time) {
		t.Fatalf("magnitude rows = %d, time bins = %d", len(sg.Magnitude), len(sg.Time))
	}
	for i, row := range sg.Magnitude {
		if len(row) != len(sg.Freq) {
			t.Fatalf("row %d has %d bins, freq axis has %d", i, len(row), len(sg.Freq))
		}
	}

	// Start-up and landing transients are clipped: all segment centers
	// sit strictly inside (1, 9) for a ten-second log.
	for i, tc := range sg.Time {
		if tc <= 1 || tc >= 9 {
			t.Errorf("Time[%d] = %g, want inside (1, 9)", i, tc)
		}
	}
	for i := 1; i < len(sg.Time); i++ {
		if sg.Time[i] <= sg.Time[i-1] {
			t.Errorf("segment times not increasing at %d", i)
		}
	}

	// Every segment peaks at the sine frequency.
	for ti, row := range sg.Magnitude {
		peak := 0
		for k := range row {
			if row[k] > row[peak] {
				peak = k
			}
		}
		if got := sg.Freq[peak]; math.Abs(got-100) > 1.0 {
			t.Errorf("segment %d peaks at %g Hz, want 100 +/- 1", ti, got)
		}
	}
}

func TestEstimateSpectrogramMaxFreq(t *testing.T) {
	tm, values := sineLog(10, 1000, 100)

	cfg := DefaultSpectrogramConfig()
	cfg.MaxFreq = 200
	sg, err := EstimateSpectrogram(tm, values, cfg)
	if err != nil {
		t.Fatalf("EstimateSpectrogram failed: %v", err)
	}
	if len(sg.Freq) == 0 {
		t.Fatal("empty frequency axis")
	}
	for _, f := range sg.Freq {
		if f > 200 {
			t.Errorf("Freq contains %g, want <= 200", f)
		}
	}
}

func TestEstimateSpectrogramGain(t *testing.T) {
	tm, values := sineLog(10, 1000, 100)

	base, err := EstimateSpectrogram(tm, values, DefaultSpectrogramConfig())
	if err != nil {
		t.Fatalf("EstimateSpectrogram failed: %v", err)
	}
	cfg := DefaultSpectrogramConfig()
	cfg.Gain = 4
	scaled, err := EstimateSpectrogram(tm, values, cfg)
	if err != nil {
		t.Fatalf("EstimateSpectrogram with gain failed: %v", err)
	}
	for ti := range base.Magnitude {
		for k := range base.Magnitude[ti] {
			want := base.Magnitude[ti][k] * 4
			if math.Abs(scaled.Magnitude[ti][k]-want) > 1e-9*math.Max(1, want) {
				t.Fatalf("gain not applied at [%d][%d]: %g, want %g", ti, k, scaled.Magnitude[ti][k], want)
			}
		}
	}
}

func TestEstimateSpectrogramTooShort(t *testing.T) {
	// Shorter than twice the clip margin: nothing survives.
	tm, values := sineLog(1.5, 1000, 100)
	if _, err := EstimateSpectrogram(tm, values, DefaultSpectrogramConfig()); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("got %v, want ErrInsufficientData", err)
	}
	if _, err := EstimateSpectrogram([]float64{0}, []float64{0}, DefaultSpectrogramConfig()); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("single sample: got %v, want ErrInsufficientData", err)
	}
}
