package pipeline

import (
	"context"
	"testing"

	"github.com/banshee-data/radartrack/internal/config"
	"github.com/banshee-data/radartrack/internal/monitoring"
	"github.com/banshee-data/radartrack/internal/radar"
	"github.com/banshee-data/radartrack/internal/tracking/batch"
	"github.com/banshee-data/radartrack/internal/tracking/kalman"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func quietLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(t.Logf)
	t.Cleanup(func() { monitoring.Logf = original })
}

// at builds a measurement for a Cartesian point. The origin is built
// directly since its azimuth is undefined.
func at(x, y, z, tm float64) radar.Measurement {
	if x == 0 && y == 0 && z == 0 {
		return radar.Measurement{Time: tm}
	}
	return radar.FromCartesian(radar.Point{X: x, Y: y, Z: z}, tm)
}

func scenario() []radar.Measurement {
	return []radar.Measurement{
		at(0, 0, 0, 0),
		at(10, 0, 0, 50),
		at(20.3, -0.1, 0.05, 100),
	}
}

func tightFilter() kalman.Config {
	cfg := kalman.DefaultConfig()
	cfg.PlantNoise = 0.001
	cfg.InitialCovariance = 0.01
	return cfg
}

func TestRunEndToEndScenario(t *testing.T) {
	quietLogs(t)

	res, err := Run(context.Background(), scenario(), DefaultConfig())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Groups)
	require.Len(t, res.Samples, 1)

	s := res.Samples[0]
	assert.Equal(t, 100.0, s.Time)
	assert.InDelta(t, 20.3, s.Position.X, 1.0)
	assert.InDelta(t, 0, s.Position.Y, 1.0)
	assert.InDelta(t, 0, s.Position.Z, 1.0)
	assert.InDelta(t, 0.2, s.Velocity.X, 0.02)
	assert.InDelta(t, 20.3, s.Range, 1.0)
	assert.InDelta(t, 90, s.Azimuth, 5)

	require.Len(t, res.Associations, 1)
	a, ok := res.Associations["Track-2"]
	require.True(t, ok, "associations: %v", res.Associations)
	assert.Equal(t, "Track-2", a.TrackID)
	assert.Equal(t, "Report-1", a.ReportID)
	assert.Equal(t, 0, a.ReportIndex)
	assert.InDelta(t, 20.3, a.ReportPosition.X, 1e-9)
	assert.Equal(t, s.Position, a.TrackPosition)
	assert.LessOrEqual(t, a.Mahalanobis, kalman.DefaultGateThreshold)

	want := Stats{Measurements: 3, Bootstrap: 2, Updated: 1}
	if diff := cmp.Diff(want, res.Stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestRunLegacyVelocitySign(t *testing.T) {
	quietLogs(t)

	cfg := DefaultConfig()
	cfg.Filter.LegacyVelocitySign = true
	tr := NewTracker(cfg)

	groups := batch.Partition(scenario()[:2], cfg.MaxWindow)
	require.Len(t, groups, 1)
	_, err := tr.ProcessGroup(groups[0])
	require.NoError(t, err)

	require.True(t, tr.Filter().Ready())
	assert.InDelta(t, -0.2, tr.Filter().Velocity().X, 1e-9)
}

func TestDegenerateGroupLeavesStateUntouched(t *testing.T) {
	quietLogs(t)

	cfg := DefaultConfig()
	cfg.Filter = tightFilter()
	tr := NewTracker(cfg)

	ms := []radar.Measurement{
		at(0, 0, 0, 0),
		at(10, 0, 0, 50),
		at(500, 0, 0, 100), // far off the predicted path
	}
	groups := batch.Partition(ms, cfg.MaxWindow)
	require.Len(t, groups, 2)

	_, err := tr.ProcessGroup(groups[0])
	require.NoError(t, err)

	f := tr.Filter()
	state := f.State()
	cov := f.Covariance()
	estTime := f.EstimateTime()

	out, err := tr.ProcessGroup(groups[1])
	require.NoError(t, err)
	assert.Equal(t, []Outcome{Gated}, out.Outcomes)
	assert.False(t, out.Updated())

	assert.Equal(t, state, f.State())
	assert.True(t, mat.Equal(cov, f.Covariance()))
	assert.Equal(t, estTime, f.EstimateTime())
	assert.Equal(t, 100.0, f.MeasTime())
	assert.Equal(t, 50.0, f.PrevTime())

	res := tr.Result()
	assert.Empty(t, res.Associations)
	assert.Empty(t, res.Samples)
	assert.Equal(t, 1, res.Stats.Gated)
	assert.Equal(t, 1, res.Stats.SkippedGroup)
}

func TestGateDisabledAcceptsOutlier(t *testing.T) {
	quietLogs(t)

	cfg := DefaultConfig()
	cfg.Filter = tightFilter()
	cfg.Filter.GateEnabled = false

	res, err := Run(context.Background(), []radar.Measurement{
		at(0, 0, 0, 0),
		at(10, 0, 0, 50),
		at(500, 0, 0, 100),
	}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Updated)
	assert.Contains(t, res.Associations, "Track-2")
}

func TestLaterUpdatesOverwriteGroupAssociation(t *testing.T) {
	quietLogs(t)

	ms := []radar.Measurement{
		at(0, 0, 0, 0),
		at(10, 0, 0, 50),
		at(20, 0, 0, 100),
		at(22, 0, 0, 110),
	}
	res, err := Run(context.Background(), ms, DefaultConfig())
	require.NoError(t, err)

	require.Len(t, res.Samples, 2)
	assert.Equal(t, 100.0, res.Samples[0].Time)
	assert.Equal(t, 110.0, res.Samples[1].Time)

	require.Len(t, res.Associations, 1)
	a := res.Associations["Track-2"]
	assert.Equal(t, 110.0, a.Time)
	assert.Equal(t, "Report-2", a.ReportID, "the later cycle matches the second member")
	assert.InDelta(t, 22, a.TrackPosition.X, 1e-6)
}

func TestCandidatesComeFromWholeGroup(t *testing.T) {
	quietLogs(t)

	// The first steady-state member is an outlier, but its cycle can still
	// associate with the well-placed second member of the same group.
	ms := []radar.Measurement{
		at(0, 0, 0, 0),
		at(10, 0, 0, 50),
		at(300, 40, 0, 100),
		at(20, 0, 0, 100),
	}
	res, err := Run(context.Background(), ms, DefaultConfig())
	require.NoError(t, err)

	require.Len(t, res.Samples, 2)
	a := res.Associations["Track-2"]
	assert.Equal(t, 1, a.ReportIndex)
	assert.InDelta(t, 20, a.ReportPosition.X, 1e-9)
}

func TestSingularInnovationDegradesCycle(t *testing.T) {
	quietLogs(t)

	cfg := DefaultConfig()
	cfg.Filter.PlantNoise = 0
	cfg.Filter.MeasurementNoise = 0
	cfg.Filter.InitialCovariance = 0

	res, err := Run(context.Background(), scenario(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Degraded)
	assert.Equal(t, 0, res.Stats.Updated)
	assert.Empty(t, res.Associations)
}

func TestBootstrapRecoversFromRepeatedTimestamp(t *testing.T) {
	quietLogs(t)

	ms := []radar.Measurement{
		at(0, 0, 0, 0),
		at(5, 0, 0, 0),
		at(15, 0, 0, 50),
		at(25, 0, 0, 100),
	}
	res, err := Run(context.Background(), ms, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Stats.Bootstrap)
	require.Len(t, res.Samples, 1)
	assert.InDelta(t, 0.2, res.Samples[0].Velocity.X, 0.02)
}

func TestRunInputErrors(t *testing.T) {
	quietLogs(t)

	_, err := Run(context.Background(), nil, DefaultConfig())
	assert.ErrorIs(t, err, radar.ErrEmptyInput)

	_, err = Run(context.Background(), []radar.Measurement{at(1, 0, 0, 10), at(2, 0, 0, 5)}, DefaultConfig())
	assert.ErrorIs(t, err, radar.ErrNonMonotonic)

	cfg := DefaultConfig()
	cfg.MaxWindow = -1
	_, err = Run(context.Background(), scenario(), cfg)
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	quietLogs(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, scenario(), DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortedTrackIDs(t *testing.T) {
	r := &Result{Associations: map[string]Association{
		"Track-10": {},
		"Track-2":  {},
		"Track-1":  {},
		"other":    {},
	}}
	assert.Equal(t, []string{"Track-1", "Track-2", "Track-10", "other"}, r.SortedTrackIDs())
}

func TestConfigFromTuning(t *testing.T) {
	assert.Equal(t, DefaultConfig(), ConfigFromTuning(nil))
	assert.Equal(t, DefaultConfig(), ConfigFromTuning(config.MustLoadDefaultConfig()))

	window, conf, legacy := 80.0, 0.95, true
	got := ConfigFromTuning(&config.TuningConfig{
		MaxWindow:          &window,
		GateConfidence:     &conf,
		LegacyVelocitySign: &legacy,
	})
	assert.Equal(t, 80.0, got.MaxWindow)
	assert.InDelta(t, 7.815, got.Filter.GateThreshold, 0.001)
	assert.True(t, got.Filter.LegacyVelocitySign)
	assert.True(t, got.Filter.GateEnabled)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "updated", Updated.String())
	assert.Equal(t, "gated", Gated.String())
	assert.Equal(t, "degraded", Degraded.String())
	assert.Equal(t, "no-candidates", NoCandidates.String())
	assert.Equal(t, "Outcome(7)", Outcome(7).String())
}
