package analysis

import "math"

// Hann returns a symmetric Hann taper of length n with zero endpoints.
func Hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// FrameLen converts a frame duration into a sample count for the given rate.
func FrameLen(frameSeconds, fs float64) int {
	return int(math.Round(frameSeconds * fs))
}

// FrameCount reports how many overlapping frames of length flen fit into a
// series of n samples at superposition factor superpos, together with the
// frame stride. The count is floor(n/shift) - superpos; zero or negative
// means the series is too short for this framing.
func FrameCount(n, flen, superpos int) (wins, shift int) {
	if flen <= 0 || superpos <= 0 {
		return 0, 0
	}
	shift = flen / superpos
	if shift <= 0 {
		return 0, 0
	}
	return n/shift - superpos, shift
}

// Stack slices data into overlapping frames of length flen at stride
// flen/superpos, multiplying each frame elementwise by the taper. The taper
// must have length flen. Returns ErrInsufficientData when the series is too
// short to produce a single frame.
func Stack(data []float64, flen, superpos int, taper []float64) ([][]float64, error) {
	wins, shift := FrameCount(len(data), flen, superpos)
	if wins <= 0 {
		return nil, ErrInsufficientData
	}

	frames := make([][]float64, 0, wins)
	for i := 0; i < wins; i++ {
		start := i * shift
		if start+flen > len(data) {
			break
		}
		frame := make([]float64, flen)
		copy(frame, data[start:start+flen])
		if taper != nil {
			for j := range frame {
				frame[j] *= taper[j]
			}
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return nil, ErrInsufficientData
	}
	return frames, nil
}
