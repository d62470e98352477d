package flight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Runtime is the external decoder binary that turns a raw .bbl blackbox log
// into CSV files next to it.
const Runtime = "blackbox_decode"

// Decoder runs the external blackbox decoder. The binary is opaque; only its
// CSV output is consumed.
type Decoder struct {
	binPath string
}

// NewDecoder creates a decoder. With an empty binPath the binary is looked up
// on PATH.
func NewDecoder(binPath string) (*Decoder, error) {
	if binPath == "" {
		p, err := exec.LookPath(Runtime)
		if err != nil {
			return nil, fmt.Errorf("flight: finding decoder runtime: %w", err)
		}
		binPath = p
	} else if _, err := os.Stat(binPath); err != nil {
		return nil, fmt.Errorf("flight: decoder binary: %w", err)
	}
	return &Decoder{binPath: binPath}, nil
}

// Decode runs the decoder on one raw log and returns the path of the main
// decoded CSV. The decoder writes one CSV per flight session plus auxiliary
// GPS files; the freshest, largest non-GPS CSV is the flight data.
func (d *Decoder) Decode(ctx context.Context, logPath string) (string, error) {
	cmd := exec.CommandContext(ctx, d.binPath, "--unit-rotation", "deg/s", logPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("flight: running decoder: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return selectCSV(logPath)
}

// Load decodes a raw log and reads it back as a Log, headers included.
func (d *Decoder) Load(ctx context.Context, logPath string) (*Log, error) {
	csvPath, err := d.Decode(ctx, logPath)
	if err != nil {
		return nil, err
	}
	l, err := LoadCSV(csvPath)
	if err != nil {
		return nil, err
	}
	h, err := ParseHeaderFile(logPath)
	if err != nil {
		return nil, err
	}
	l.Header = h
	return l, nil
}

// selectCSV picks the decoder's main output among the CSV files sharing the
// log's base name: GPS files are skipped, then only files written in the same
// decoder run as the newest one are considered, and the largest of those wins.
func selectCSV(logPath string) (string, error) {
	base := strings.TrimSuffix(logPath, filepath.Ext(logPath))
	matches, err := filepath.Glob(base + "*.csv")
	if err != nil {
		return "", fmt.Errorf("flight: globbing decoder output: %w", err)
	}

	type candidate struct {
		path string
		size int64
		mod  time.Time
	}
	var cands []candidate
	var newest time.Time
	for _, m := range matches {
		name := strings.ToLower(filepath.Base(m))
		if strings.Contains(name, ".gps.") || strings.Contains(name, "gpx") {
			continue
		}
		fi, err := os.Stat(m)
		if err != nil {
			continue
		}
		cands = append(cands, candidate{m, fi.Size(), fi.ModTime()})
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
	}
	if len(cands) == 0 {
		return "", fmt.Errorf("flight: decoder produced no csv for %s", logPath)
	}

	best := -1
	for i, c := range cands {
		if newest.Sub(c.mod) > time.Second {
			continue
		}
		if best < 0 || c.size > cands[best].size {
			best = i
		}
	}
	if best < 0 {
		return "", fmt.Errorf("flight: decoder produced no csv for %s", logPath)
	}
	return cands[best].path, nil
}
