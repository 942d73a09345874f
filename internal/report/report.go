// Package report renders tracking runs as charts: PNG files through
// gonum/plot and a single HTML page through go-echarts.
package report

import (
	"errors"
	"math"

	"github.com/banshee-data/radartrack/internal/radar"
	"github.com/banshee-data/radartrack/internal/tracking/pipeline"
)

// ErrNothingToPlot is returned when the input has no series at all.
var ErrNothingToPlot = errors.New("report: nothing to plot")

// Input bundles the series drawn on every chart.
type Input struct {
	Title        string
	Measurements []radar.Measurement
	Result       *pipeline.Result
	Reference    []radar.Measurement // Optional external track
}

// Axis selects the spherical component a chart shows against time.
type Axis int

const (
	AxisRange Axis = iota
	AxisAzimuth
	AxisElevation
)

// Axes lists every chart, in output order.
var Axes = []Axis{AxisRange, AxisAzimuth, AxisElevation}

func (a Axis) String() string {
	switch a {
	case AxisRange:
		return "range"
	case AxisAzimuth:
		return "azimuth"
	case AxisElevation:
		return "elevation"
	default:
		return "unknown"
	}
}

// Label is the axis caption including units.
func (a Axis) Label() string {
	switch a {
	case AxisAzimuth:
		return "Azimuth (deg)"
	case AxisElevation:
		return "Elevation (deg)"
	default:
		return "Range"
	}
}

func (a Axis) value(m radar.Measurement) float64 {
	switch a {
	case AxisAzimuth:
		return m.Azimuth
	case AxisElevation:
		return m.Elevation
	default:
		return m.Range
	}
}

// point is one (time, value) pair of a series.
type point struct{ t, v float64 }

type series struct {
	name   string
	points []point
	line   bool // Joined line rather than scattered markers
}

func (s *series) add(t, v float64) {
	// The origin has no azimuth; neither renderer accepts NaN.
	if math.IsNaN(v) || math.IsInf(v, 0) || math.IsNaN(t) || math.IsInf(t, 0) {
		return
	}
	s.points = append(s.points, point{t, v})
}

// seriesFor extracts the measurement, estimate and reference series for a.
// Series left empty are dropped.
func (in Input) seriesFor(a Axis) []series {
	var all []series

	meas := series{name: "measurements"}
	for _, m := range in.Measurements {
		meas.add(m.Time, a.value(m))
	}
	all = append(all, meas)

	est := series{name: "estimate", line: true}
	if in.Result != nil {
		for _, smp := range in.Result.Samples {
			m := radar.Measurement{Range: smp.Range, Azimuth: smp.Azimuth, Elevation: smp.Elevation, Time: smp.Time}
			est.add(smp.Time, a.value(m))
		}
	}
	all = append(all, est)

	ref := series{name: "reference", line: true}
	for _, m := range in.Reference {
		ref.add(m.Time, a.value(m))
	}
	all = append(all, ref)

	out := all[:0]
	for _, s := range all {
		if len(s.points) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func (in Input) empty() bool {
	return len(in.Measurements) == 0 && len(in.Reference) == 0 &&
		(in.Result == nil || len(in.Result.Samples) == 0)
}

func (in Input) title() string {
	if in.Title != "" {
		return in.Title
	}
	if in.Result != nil && in.Result.RunID != "" {
		return "Run " + in.Result.RunID
	}
	return "Radar track"
}
