// Package radar holds the measurement types shared by the tracking layers.
package radar

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/radartrack/internal/coords"
)

// Input errors, reported before any tracking work starts.
var (
	ErrEmptyInput    = errors.New("radar: empty measurement sequence")
	ErrNonMonotonic  = errors.New("radar: timestamps are not non-decreasing")
	ErrInvalidSample = errors.New("radar: measurement contains NaN or Inf")
)

// Measurement is a single radar return. Azimuth and elevation are in
// degrees; Range and Time are in the sensor's native units.
type Measurement struct {
	Range     float64 `json:"range"`
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
	Time      float64 `json:"time"`
}

// Point is a Cartesian position in the sensor frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Cartesian converts the measurement into the sensor's Cartesian frame.
func (m Measurement) Cartesian() Point {
	x, y, z := coords.ToCartesian(m.Range, m.Azimuth, m.Elevation)
	return Point{X: x, Y: y, Z: z}
}

// Slice returns the point as an [x, y, z] slice.
func (p Point) Slice() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

// Spherical converts the point back to range, azimuth and elevation.
func (p Point) Spherical() (rng, azimuth, elevation float64) {
	return coords.ToSpherical(p.X, p.Y, p.Z)
}

func (p Point) String() string {
	return fmt.Sprintf("[%.6g, %.6g, %.6g]", p.X, p.Y, p.Z)
}

// FromCartesian builds a measurement from a Cartesian point, keeping the
// supplied timestamp.
func FromCartesian(p Point, t float64) Measurement {
	r, az, el := p.Spherical()
	return Measurement{Range: r, Azimuth: az, Elevation: el, Time: t}
}

// ValidateOrder checks the preconditions the batcher relies on: a non-empty
// sequence whose timestamps never decrease. It does not sort or repair.
func ValidateOrder(ms []Measurement) error {
	if len(ms) == 0 {
		return ErrEmptyInput
	}
	for i, m := range ms {
		if !finite(m.Range) || !finite(m.Azimuth) || !finite(m.Elevation) || !finite(m.Time) {
			return fmt.Errorf("measurement %d: %w", i, ErrInvalidSample)
		}
		if i > 0 && m.Time < ms[i-1].Time {
			return fmt.Errorf("measurement %d at t=%v precedes t=%v: %w", i, m.Time, ms[i-1].Time, ErrNonMonotonic)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
