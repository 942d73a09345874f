package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/radartrack/internal/coords"
	"github.com/banshee-data/radartrack/internal/radar"
)

// Reference track column names.
const (
	ColumnRefTime = "F_TIM"
	ColumnRefX    = "F_X"
	ColumnRefY    = "F_Y"
	ColumnRefZ    = "F_Z"
)

// ReferenceSample is one filtered state from an external tracker.
type ReferenceSample struct {
	Time float64 `json:"time"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
}

// ReadReferenceCSV reads the F_TIM, F_X, F_Y and F_Z columns, located by
// header name, from r.
func ReadReferenceCSV(r io.Reader) ([]ReferenceSample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read reference header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	cols := make([]int, 4)
	for i, name := range []string{ColumnRefTime, ColumnRefX, ColumnRefY, ColumnRefZ} {
		c, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("reference column %s missing: %w", name, ErrMalformedRecord)
		}
		cols[i] = c
	}

	var out []ReferenceSample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read reference csv: %w", err)
		}

		var vals [4]float64
		for i, c := range cols {
			if c >= len(rec) {
				return nil, fmt.Errorf("line %d: missing column %d: %w", line, c, ErrMalformedRecord)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[c]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %v: %w", line, c, err, ErrMalformedRecord)
			}
			vals[i] = v
		}
		out = append(out, ReferenceSample{Time: vals[0], X: vals[1], Y: vals[2], Z: vals[3]})
	}
	return out, nil
}

// ReferenceSpherical converts reference samples to range, azimuth and
// elevation, dividing range by rangeDivisor to bring it into the
// measurement's units. A zero divisor leaves range unscaled.
func ReferenceSpherical(samples []ReferenceSample, rangeDivisor float64) []radar.Measurement {
	if rangeDivisor == 0 {
		rangeDivisor = 1
	}
	out := make([]radar.Measurement, len(samples))
	for i, s := range samples {
		rng, az, el := coords.ToSpherical(s.X, s.Y, s.Z)
		out[i] = radar.Measurement{Range: rng / rangeDivisor, Azimuth: az, Elevation: el, Time: s.Time}
	}
	return out
}
