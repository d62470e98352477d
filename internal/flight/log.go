package flight

import (
	"fmt"

	"github.com/fpvtools/blackbox-analysis/internal/analysis"
)

// Axis identifies one rotational axis of the craft. The integer value is the
// column index used by the flight controller's log fields.
type Axis int

const (
	Roll Axis = iota
	Pitch
	Yaw
)

func (a Axis) String() string {
	switch a {
	case Roll:
		return "roll"
	case Pitch:
		return "pitch"
	case Yaw:
		return "yaw"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// Axes lists all rotational axes in log-field order.
func Axes() []Axis {
	return []Axis{Roll, Pitch, Yaw}
}

// Log is one decoded blackbox flight log: a normalized time axis plus the raw
// data columns keyed by their header names.
type Log struct {
	Path   string
	Header Header

	Time  []float64 // seconds, zero-based
	Clock analysis.SampleClock

	columns map[string][]float64
}

// Column returns a raw data column by its exact header name.
func (l *Log) Column(name string) ([]float64, bool) {
	c, ok := l.columns[name]
	return c, ok
}

// Columns returns the names of all data columns in the log.
func (l *Log) Columns() []string {
	names := make([]string, 0, len(l.columns))
	for name := range l.columns {
		names = append(names, name)
	}
	return names
}

// Samples returns the number of rows in the log.
func (l *Log) Samples() int {
	return len(l.Time)
}

// Duration returns the log length in seconds.
func (l *Log) Duration() float64 {
	if len(l.Time) == 0 {
		return 0
	}
	return l.Time[len(l.Time)-1]
}

// first returns the first present column among the candidate names. Missing
// channels stay missing; nothing is ever substituted with zeros.
func (l *Log) first(names ...string) ([]float64, bool) {
	for _, name := range names {
		if c, ok := l.columns[name]; ok {
			return c, true
		}
	}
	return nil, false
}

// Gyro returns the filtered gyro rate for one axis in deg/s.
func (l *Log) Gyro(a Axis) ([]float64, bool) {
	i := int(a)
	return l.first(
		fmt.Sprintf("gyroADC[%d] (deg/s)", i),
		fmt.Sprintf("gyroADC[%d]", i),
		fmt.Sprintf("gyroData[%d]", i),
		fmt.Sprintf("gyro[%d]", i),
	)
}

// GyroRaw returns the unfiltered gyro rate for one axis, falling back to the
// debug channel which carries the pre-filter gyro under GYRO_SCALED debugging.
func (l *Log) GyroRaw(a Axis) ([]float64, bool) {
	i := int(a)
	return l.first(
		fmt.Sprintf("gyroUnfilt[%d]", i),
		fmt.Sprintf("debug[%d]", i),
	)
}

// Debug returns the raw debug channel for one axis.
func (l *Log) Debug(a Axis) ([]float64, bool) {
	return l.first(fmt.Sprintf("debug[%d]", int(a)))
}

// PTerm returns the proportional controller term for one axis.
func (l *Log) PTerm(a Axis) ([]float64, bool) {
	return l.first(fmt.Sprintf("axisP[%d]", int(a)))
}

// ITerm returns the integral controller term for one axis.
func (l *Log) ITerm(a Axis) ([]float64, bool) {
	return l.first(fmt.Sprintf("axisI[%d]", int(a)))
}

// DTerm returns the derivative controller term for one axis.
func (l *Log) DTerm(a Axis) ([]float64, bool) {
	return l.first(fmt.Sprintf("axisD[%d]", int(a)))
}

// FTerm returns the feed-forward controller term for one axis.
func (l *Log) FTerm(a Axis) ([]float64, bool) {
	return l.first(fmt.Sprintf("axisF[%d]", int(a)))
}

// Setpoint returns the rate setpoint for one axis in deg/s.
func (l *Log) Setpoint(a Axis) ([]float64, bool) {
	return l.first(fmt.Sprintf("setpoint[%d]", int(a)))
}

// RCCommand returns the raw stick command for one axis.
func (l *Log) RCCommand(a Axis) ([]float64, bool) {
	return l.first(fmt.Sprintf("rcCommand[%d]", int(a)))
}

// Motor returns one motor output column.
func (l *Log) Motor(i int) ([]float64, bool) {
	return l.first(fmt.Sprintf("motor[%d]", i))
}

// ThrottlePercent returns the throttle channel converted to percent of range.
// Raw RC values (1000..2000) map to (raw-1000)/10; values already in a small
// range are taken as percent directly. Either way the result is clipped to
// [0, 100].
func (l *Log) ThrottlePercent() ([]float64, bool) {
	raw, ok := l.first("rcCommand[3]", "rcCommands[3]")
	if !ok {
		return nil, false
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		if v > 500 {
			v = (v - 1000) / 10
		}
		if v < 0 {
			v = 0
		} else if v > 100 {
			v = 100
		}
		out[i] = v
	}
	return out, true
}
