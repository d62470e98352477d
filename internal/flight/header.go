package flight

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// PID holds one axis' controller gains as logged by the firmware.
type PID struct {
	P float64
	I float64
	D float64
}

// Header carries the log metadata needed for analysis: firmware identity and
// per-axis controller gains. Values keeps every raw header field for callers
// that need more.
type Header struct {
	Product  string
	Firmware string

	Roll  PID
	Pitch PID
	Yaw   PID

	Values map[string]string
}

// PIDFor returns the controller gains for one axis.
func (h Header) PIDFor(a Axis) PID {
	switch a {
	case Pitch:
		return h.Pitch
	case Yaw:
		return h.Yaw
	default:
		return h.Roll
	}
}

// ParseHeaders scans the leading "H name:value" lines of a raw blackbox log.
// Scanning stops at the first non-header line; binary frame data never reaches
// the line scanner.
func ParseHeaders(r io.Reader) (Header, error) {
	h := Header{Values: make(map[string]string)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "H ") {
			break
		}
		name, value, ok := strings.Cut(line[2:], ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		h.Values[name] = value

		switch name {
		case "Product":
			h.Product = value
		case "Firmware revision":
			h.Firmware = value
		case "rollPID":
			h.Roll = parsePID(value)
		case "pitchPID":
			h.Pitch = parsePID(value)
		case "yawPID":
			h.Yaw = parsePID(value)
		}
	}
	if err := sc.Err(); err != nil {
		return h, fmt.Errorf("flight: reading headers: %w", err)
	}
	return h, nil
}

// ParseHeaderFile reads the headers of a raw blackbox log on disk.
func ParseHeaderFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("flight: opening log: %w", err)
	}
	defer f.Close()
	return ParseHeaders(f)
}

// parsePID splits a "P,I,D" triplet. Missing or malformed components stay
// zero; a zero P gain later fails the step-response estimate explicitly.
func parsePID(value string) PID {
	var pid PID
	parts := strings.Split(value, ",")
	targets := []*float64{&pid.P, &pid.I, &pid.D}
	for i, t := range targets {
		if i >= len(parts) {
			break
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64); err == nil {
			*t = v
		}
	}
	return pid
}
