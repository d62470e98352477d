package analysis

import "math"

type edgeMode int

const (
	// edgeReflect extends the signal by mirroring about the edge sample
	// (d c b a | a b c d), the default elsewhere in scientific filters.
	edgeReflect edgeMode = iota
	// edgeConstant extends the signal with zeros.
	edgeConstant
)

// gaussianKernel builds a normalized Gaussian kernel truncated at 4 standard
// deviations, radius int(4*sigma + 0.5).
func gaussianKernel(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+radius] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianFilter1D smooths data with a Gaussian of the given standard
// deviation (in samples), using the selected edge handling.
func gaussianFilter1D(data []float64, sigma float64, mode edgeMode) []float64 {
	out := make([]float64, len(data))
	if len(data) == 0 || sigma <= 0 {
		copy(out, data)
		return out
	}

	k := gaussianKernel(sigma)
	radius := len(k) / 2
	n := len(data)

	for i := range data {
		var acc float64
		for j := -radius; j <= radius; j++ {
			idx := i + j
			var v float64
			switch {
			case idx >= 0 && idx < n:
				v = data[idx]
			case mode == edgeConstant:
				v = 0
			default:
				v = data[reflectIndex(idx, n)]
			}
			acc += v * k[j+radius]
		}
		out[i] = acc
	}
	return out
}

// reflectIndex maps an out-of-range index into [0, n) by mirroring about the
// array edges, duplicating the edge samples.
func reflectIndex(idx, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	idx %= period
	if idx < 0 {
		idx += period
	}
	if idx >= n {
		idx = period - 1 - idx
	}
	return idx
}

// toMask rescales values into [0, 1] by shifting to zero minimum and dividing
// by the maximum. A flat input maps to all zeros.
func toMask(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	minV := values[0]
	for _, v := range values {
		if v < minV {
			minV = v
		}
	}
	maxV := 0.0
	for i, v := range values {
		out[i] = v - minV
		if out[i] > maxV {
			maxV = out[i]
		}
	}
	if maxV > 0 {
		for i := range out {
			out[i] /= maxV
		}
	}
	return out
}
