package flight

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fpvtools/blackbox-analysis/internal/analysis"
)

// ReadCSV parses a decoded blackbox CSV stream into a Log. The time column is
// the first header containing "time" (any case), falling back to the first
// column; its values are normalized to zero-based seconds and the sample clock
// derived from them. Empty cells read as zero; any other unparsable cell is an
// error.
func ReadCSV(r io.Reader) (*Log, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1 // decoders occasionally emit ragged rows
	cr.ReuseRecord = true

	first, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("flight: reading csv header: %w", err)
	}
	// The reader reuses its record buffer; the header must outlive it.
	header := make([]string, len(first))
	for i := range first {
		header[i] = strings.TrimSpace(first[i])
	}

	timeCol := 0
	for i, name := range header {
		if strings.Contains(strings.ToLower(name), "time") {
			timeCol = i
			break
		}
	}

	cols := make([][]float64, len(header))
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flight: reading csv row %d: %w", row, err)
		}
		for i, cell := range rec {
			if i >= len(cols) {
				break
			}
			cell = strings.TrimSpace(cell)
			var v float64
			if cell != "" {
				v, err = strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, fmt.Errorf("flight: row %d column %q: %w", row, header[i], err)
				}
			}
			cols[i] = append(cols[i], v)
		}
		// Ragged rows: keep every column the same length as the time axis.
		for i := len(rec); i < len(cols); i++ {
			cols[i] = append(cols[i], 0)
		}
	}

	tm, clock, err := analysis.Normalize(cols[timeCol])
	if err != nil {
		return nil, fmt.Errorf("flight: time column %q: %w", header[timeCol], err)
	}

	columns := make(map[string][]float64, len(header))
	for i, name := range header {
		if i == timeCol || name == "" {
			continue
		}
		columns[name] = cols[i]
	}

	return &Log{
		Time:    tm,
		Clock:   clock,
		columns: columns,
	}, nil
}

// LoadCSV reads a decoded blackbox CSV file from disk.
func LoadCSV(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("flight: opening csv: %w", err)
	}
	defer f.Close()

	l, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	l.Path = path
	return l, nil
}
