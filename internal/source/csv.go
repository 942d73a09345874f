// Package source reads radar measurements from recorded CSV exports and
// live serial feeds, and reads the reference tracks they are compared to.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/radartrack/internal/radar"
)

// ErrMalformedRecord is returned for rows that cannot be parsed.
var ErrMalformedRecord = errors.New("source: malformed record")

// CSVLayout locates the measurement columns in a CSV export.
type CSVLayout struct {
	Range      int
	Azimuth    int
	Elevation  int
	Time       int
	SkipHeader bool

	// Normalize passes every row through a spherical to Cartesian to
	// spherical round trip, folding azimuths into [0, 360].
	Normalize bool
}

// DefaultCSVLayout matches the tracker exports: MR, MA, ME and MT in
// columns 7 to 10 behind a single header row.
func DefaultCSVLayout() CSVLayout {
	return CSVLayout{
		Range:      7,
		Azimuth:    8,
		Elevation:  9,
		Time:       10,
		SkipHeader: true,
		Normalize:  true,
	}
}

// ReadMeasurementsCSV reads measurements using DefaultCSVLayout.
func ReadMeasurementsCSV(r io.Reader) ([]radar.Measurement, error) {
	return DefaultCSVLayout().Read(r)
}

// Read parses every row of r into a measurement. Rows keep file order.
func (l CSVLayout) Read(r io.Reader) ([]radar.Measurement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	need := max(l.Range, l.Azimuth, l.Elevation, l.Time) + 1

	var out []radar.Measurement
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if line == 1 && l.SkipHeader {
			continue
		}
		if len(rec) < need {
			return nil, fmt.Errorf("line %d: %d fields, need %d: %w", line, len(rec), need, ErrMalformedRecord)
		}

		var vals [4]float64
		for i, col := range []int{l.Range, l.Azimuth, l.Elevation, l.Time} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %v: %w", line, col, err, ErrMalformedRecord)
			}
			vals[i] = v
		}

		m := radar.Measurement{Range: vals[0], Azimuth: vals[1], Elevation: vals[2], Time: vals[3]}
		if l.Normalize {
			m = normalize(m)
		}
		out = append(out, m)
	}
	return out, nil
}

// normalize re-derives range, azimuth and elevation from the Cartesian
// position. Zero-range returns have no direction and are left as read.
func normalize(m radar.Measurement) radar.Measurement {
	if m.Range == 0 {
		return m
	}
	return radar.FromCartesian(m.Cartesian(), m.Time)
}
