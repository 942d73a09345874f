package batch

import (
	"math/rand"
	"testing"

	"github.com/banshee-data/radartrack/internal/radar"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(ts ...float64) []radar.Measurement {
	ms := make([]radar.Measurement, len(ts))
	for i, t := range ts {
		ms[i] = radar.Measurement{Range: float64(100 + i), Azimuth: float64(i), Elevation: 1, Time: t}
	}
	return ms
}

func times(g Group) []float64 {
	out := make([]float64, len(g.Measurements))
	for i, m := range g.Measurements {
		out[i] = m.Time
	}
	return out
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want [][]float64
	}{
		{"single", []float64{3}, [][]float64{{3}}},
		{"all within window", []float64{0, 10, 50}, [][]float64{{0, 10, 50}}},
		{"boundary is inclusive", []float64{0, 50, 100}, [][]float64{{0, 50}, {100}}},
		{"base resets on new group", []float64{0, 60, 100, 111, 161}, [][]float64{{0}, {60, 100}, {111, 161}}},
		{"equal timestamps", []float64{5, 5, 5}, [][]float64{{5, 5, 5}}},
		{"every sample isolated", []float64{0, 51, 102, 153}, [][]float64{{0}, {51}, {102}, {153}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := Partition(at(tt.in...), DefaultMaxWindow)
			got := make([][]float64, len(groups))
			for i, g := range groups {
				assert.Equal(t, i, g.Index)
				got[i] = times(g)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Partition() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPartition_Empty(t *testing.T) {
	assert.Nil(t, Partition(nil, DefaultMaxWindow))
	assert.Nil(t, Partition([]radar.Measurement{}, DefaultMaxWindow))
}

func TestPartition_CompletenessAndSpan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(60) + 1
		ts := make([]float64, n)
		cur := rng.Float64() * 100
		for i := range ts {
			// one in five samples repeats the previous timestamp
			if rng.Intn(5) != 0 {
				cur += rng.ExpFloat64() * 20
			}
			ts[i] = cur
		}
		window := 10 + rng.Float64()*80
		in := at(ts...)

		groups := Partition(in, window)
		require.NotEmpty(t, groups)

		if diff := cmp.Diff(in, Flatten(groups)); diff != "" {
			t.Fatalf("trial %d: flatten mismatch (-in +out):\n%s", trial, diff)
		}
		for _, g := range groups {
			require.NotZero(t, g.Len())
			assert.LessOrEqual(t, g.Span(), window, "trial %d group %d", trial, g.Index)
		}
		// Each group after the first starts beyond the previous base's window.
		for i := 1; i < len(groups); i++ {
			assert.Greater(t, groups[i].BaseTime()-groups[i-1].BaseTime(), window)
		}
	}
}

func TestGroupPoints(t *testing.T) {
	g := Group{Measurements: []radar.Measurement{
		{Range: 10, Azimuth: 90, Elevation: 0, Time: 0},
		{Range: 20, Azimuth: 0, Elevation: 0, Time: 1},
	}}
	pts := g.Points()
	require.Len(t, pts, 2)
	assert.InDelta(t, 10, pts[0].X, 1e-9)
	assert.InDelta(t, 20, pts[1].Y, 1e-9)
}

func TestPartition_DoesNotShareCapacity(t *testing.T) {
	in := at(0, 10, 100, 110)
	groups := Partition(in, DefaultMaxWindow)
	require.Len(t, groups, 2)

	// Appending to the first group must not clobber the second.
	_ = append(groups[0].Measurements, radar.Measurement{Time: -1})
	assert.Equal(t, 100.0, groups[1].Measurements[0].Time)
}
