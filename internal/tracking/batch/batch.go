// Package batch partitions a time-ordered measurement stream into groups
// that share a bounded time window.
package batch

import "github.com/banshee-data/radartrack/internal/radar"

// DefaultMaxWindow is the default group window, in measurement time units.
const DefaultMaxWindow = 50.0

// Group is a run of measurements whose timestamps all lie within the
// window of its first member.
type Group struct {
	Index        int
	Measurements []radar.Measurement
}

// BaseTime returns the timestamp of the group's first member.
func (g Group) BaseTime() float64 {
	return g.Measurements[0].Time
}

// Span returns the time between the group's first and last members.
func (g Group) Span() float64 {
	return g.Measurements[len(g.Measurements)-1].Time - g.BaseTime()
}

// Len returns the number of measurements in the group.
func (g Group) Len() int { return len(g.Measurements) }

// Points converts every member to Cartesian, preserving order.
func (g Group) Points() []radar.Point {
	pts := make([]radar.Point, len(g.Measurements))
	for i, m := range g.Measurements {
		pts[i] = m.Cartesian()
	}
	return pts
}

// Partition groups ms by time window. A measurement joins the open group
// while t - base <= maxWindow; otherwise the group is closed and a new one
// starts with that measurement as its base.
//
// ms must already be in non-decreasing timestamp order; it is not sorted
// here. Empty input yields no groups. Groups alias the input slice.
func Partition(ms []radar.Measurement, maxWindow float64) []Group {
	if len(ms) == 0 {
		return nil
	}

	var groups []Group
	start := 0
	base := ms[0].Time

	for i := 1; i < len(ms); i++ {
		if ms[i].Time-base <= maxWindow {
			continue
		}
		groups = append(groups, Group{Index: len(groups), Measurements: ms[start:i:i]})
		start = i
		base = ms[i].Time
	}
	groups = append(groups, Group{Index: len(groups), Measurements: ms[start:len(ms):len(ms)]})

	return groups
}

// Flatten concatenates the groups back into a single sequence.
func Flatten(groups []Group) []radar.Measurement {
	n := 0
	for _, g := range groups {
		n += len(g.Measurements)
	}
	out := make([]radar.Measurement, 0, n)
	for _, g := range groups {
		out = append(out, g.Measurements...)
	}
	return out
}
