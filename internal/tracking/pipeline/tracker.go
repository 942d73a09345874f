// Package pipeline sequences batching, filtering and association for a
// single target.
//
// Each group is processed member by member. Until the filter is ready the
// members only bootstrap it. After that every member records its timing,
// predicts the track to its own timestamp, associates the prediction with
// the whole group and, if the best candidate passes the gate, updates the
// track. A group's association record is keyed Track-<group index + 1>;
// later updates inside the same group overwrite earlier ones.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/radartrack/internal/monitoring"
	"github.com/banshee-data/radartrack/internal/radar"
	"github.com/banshee-data/radartrack/internal/tracking/assoc"
	"github.com/banshee-data/radartrack/internal/tracking/batch"
	"github.com/banshee-data/radartrack/internal/tracking/kalman"
	"github.com/google/uuid"
)

// Tracker owns the filter for one run. It is not safe for concurrent use.
type Tracker struct {
	cfg    Config
	filter *kalman.Filter

	samples      []Sample
	associations map[string]Association
	stats        Stats
	groups       int
}

// NewTracker returns a tracker with an empty filter.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		cfg:          cfg,
		filter:       kalman.New(cfg.Filter),
		associations: make(map[string]Association),
	}
}

// Filter exposes the tracker's filter for inspection.
func (t *Tracker) Filter() *kalman.Filter { return t.filter }

// ProcessGroup runs every member of g through the filter.
//
// Bootstrap problems, gate rejections, singular innovations and empty
// candidate sets are recovered locally and reported in the outcome. The
// returned error is reserved for failures that invalidate the run.
func (t *Tracker) ProcessGroup(g batch.Group) (GroupOutcome, error) {
	out := GroupOutcome{Index: g.Index}
	t.groups++

	pts := g.Points()
	for i, m := range g.Measurements {
		t.stats.Measurements++
		monitoring.Debugf("group %d measurement %d: r=%g az=%g el=%g t=%g",
			g.Index+1, i+1, m.Range, m.Azimuth, m.Elevation, m.Time)

		if !t.filter.Ready() {
			out.Bootstrap++
			t.stats.Bootstrap++
			if err := t.filter.Initialize(pts[i], m.Time); err != nil {
				monitoring.Logf("group %d: bootstrap sample at t=%g dropped: %v", g.Index+1, m.Time, err)
			}
			continue
		}

		o, err := t.cycle(g.Index, pts, pts[i], m.Time)
		if err != nil {
			return out, fmt.Errorf("group %d measurement %d: %w", g.Index+1, i+1, err)
		}
		out.Outcomes = append(out.Outcomes, o)
		t.stats.add(o)
	}

	if len(out.Outcomes) > 0 && !out.Updated() {
		t.stats.SkippedGroup++
		monitoring.Debugf("group %d: no successful update, nothing recorded", g.Index+1)
	}
	return out, nil
}

// cycle runs one steady-state predict/associate/gate/update step for the
// sample p taken at time tm. Candidates come from the whole group.
func (t *Tracker) cycle(groupIndex int, candidates []radar.Point, p radar.Point, tm float64) (Outcome, error) {
	if err := t.filter.Initialize(p, tm); err != nil {
		return 0, err
	}
	if err := t.filter.Predict(tm); err != nil {
		return 0, err
	}

	predicted := t.filter.PredictedPosition()
	row, dist, err := assoc.Best(predicted, candidates)
	if errors.Is(err, assoc.ErrNoCandidates) {
		monitoring.Debugf("group %d t=%g: no candidates", groupIndex+1, tm)
		return NoCandidates, nil
	}
	if err != nil {
		return 0, err
	}
	z := candidates[row]

	d2, ok, err := t.filter.Gate(z)
	if errors.Is(err, kalman.ErrSingularInnovation) {
		t.filter.Coast()
		monitoring.Logf("group %d t=%g: degraded cycle, %v", groupIndex+1, tm, err)
		return Degraded, nil
	}
	if err != nil {
		return 0, err
	}
	if !ok {
		monitoring.Debugf("group %d t=%g: %s gated out (d²=%.3f > %.3f, distance %.3f)",
			groupIndex+1, tm, ReportID(row), d2, t.cfg.Filter.GateThreshold, dist)
		return Gated, nil
	}

	if err := t.filter.Update(z); err != nil {
		if errors.Is(err, kalman.ErrSingularInnovation) {
			monitoring.Logf("group %d t=%g: degraded cycle, %v", groupIndex+1, tm, err)
			return Degraded, nil
		}
		return 0, err
	}

	pos := t.filter.Position()
	rng, az, el := pos.Spherical()
	t.samples = append(t.samples, Sample{
		Time:      tm,
		Range:     rng,
		Azimuth:   az,
		Elevation: el,
		Position:  pos,
		Velocity:  t.filter.Velocity(),
	})

	id := TrackID(groupIndex)
	t.associations[id] = Association{
		TrackID:        id,
		TrackPosition:  pos,
		ReportID:       ReportID(row),
		ReportIndex:    row,
		ReportPosition: z,
		Time:           tm,
		Mahalanobis:    d2,
	}
	monitoring.Debugf("group %d t=%g: updated with %s, state %v", groupIndex+1, tm, ReportID(row), t.filter.State())
	return Updated, nil
}

// Result returns a snapshot of everything recorded so far. RunID is left
// empty; Run fills it in.
func (t *Tracker) Result() *Result {
	samples := make([]Sample, len(t.samples))
	copy(samples, t.samples)
	assocs := make(map[string]Association, len(t.associations))
	for k, v := range t.associations {
		assocs[k] = v
	}
	return &Result{
		Groups:       t.groups,
		Samples:      samples,
		Associations: assocs,
		Stats:        t.stats,
	}
}

// Run validates ms, partitions it into groups and tracks them in order.
// Cancellation is honoured between groups only.
func Run(ctx context.Context, ms []radar.Measurement, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := radar.ValidateOrder(ms); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	groups := batch.Partition(ms, cfg.MaxWindow)
	monitoring.Logf("tracking %d measurements in %d groups (window %g)", len(ms), len(groups), cfg.MaxWindow)

	tr := NewTracker(cfg)
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := tr.ProcessGroup(g); err != nil {
			return nil, err
		}
	}

	res := tr.Result()
	res.RunID = uuid.NewString()
	s := res.Stats
	monitoring.Logf("run %s: %d updated, %d gated, %d degraded, %d associations",
		res.RunID, s.Updated, s.Gated, s.Degraded, len(res.Associations))
	return res, nil
}
