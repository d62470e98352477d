package flight

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/fpvtools/blackbox-analysis/internal/analysis"
)

// TrackingError returns setpoint minus measured rate for one axis, the signal
// the PID loop is trying to drive to zero.
func (l *Log) TrackingError(a Axis) ([]float64, error) {
	sp, ok := l.Setpoint(a)
	if !ok {
		return nil, fmt.Errorf("flight: setpoint[%d]: %w", int(a), analysis.ErrMissingChannel)
	}
	gy, ok := l.Gyro(a)
	if !ok {
		return nil, fmt.Errorf("flight: gyro %s: %w", a, analysis.ErrMissingChannel)
	}
	n := len(sp)
	if len(gy) < n {
		n = len(gy)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = sp[i] - gy[i]
	}
	return out, nil
}

// PIDOutput returns the summed controller output for one axis: P plus
// whichever of I, D and F the log carries. Yaw logs routinely omit the D term,
// so only the P term is mandatory.
func (l *Log) PIDOutput(a Axis) ([]float64, error) {
	p, ok := l.PTerm(a)
	if !ok {
		return nil, fmt.Errorf("flight: axisP[%d]: %w", int(a), analysis.ErrMissingChannel)
	}
	out := make([]float64, len(p))
	copy(out, p)

	for _, term := range [][]float64{
		orNil(l.ITerm(a)),
		orNil(l.DTerm(a)),
		orNil(l.FTerm(a)),
	} {
		for i := 0; i < len(out) && i < len(term); i++ {
			out[i] += term[i]
		}
	}
	return out, nil
}

func orNil(s []float64, ok bool) []float64 {
	if !ok {
		return nil
	}
	return s
}

// CumulativeError integrates the tracking error over time, exposing slow
// drift that the instantaneous error hides.
func (l *Log) CumulativeError(a Axis) ([]float64, error) {
	e, err := l.TrackingError(a)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(e))
	var acc float64
	for i, v := range e {
		acc += v * l.Clock.DT
		out[i] = acc
	}
	return out, nil
}

// TrimOutliers returns the values within mean +/- 3 standard deviations,
// sized for histogramming without a handful of transients stretching the
// axis.
func TrimOutliers(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	mean, std := stat.MeanStdDev(values, nil)
	lo, hi := mean-3*std, mean+3*std
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= lo && v <= hi {
			out = append(out, v)
		}
	}
	return out
}

// Decimate reduces a series to about maxPoints by stride sampling, always
// keeping the final sample so the visible range does not shrink.
func Decimate(values []float64, maxPoints int) []float64 {
	if maxPoints <= 0 || len(values) <= maxPoints {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	stride := (len(values) + maxPoints - 1) / maxPoints
	out := make([]float64, 0, maxPoints+1)
	for i := 0; i < len(values); i += stride {
		out = append(out, values[i])
	}
	if (len(values)-1)%stride != 0 {
		out = append(out, values[len(values)-1])
	}
	return out
}
