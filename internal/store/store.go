// Package store persists measurements and tracking runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/radartrack/internal/radar"
	"github.com/banshee-data/radartrack/internal/timeutil"
	"github.com/banshee-data/radartrack/internal/tracking/pipeline"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by LoadRun for an unknown run ID.
var ErrRunNotFound = errors.New("store: run not found")

// DB wraps the SQLite handle.
type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// Open opens (or creates) the database at path and migrates it to the
// latest schema. Use ":memory:" for a throwaway database.
func Open(path string) (*DB, error) {
	return OpenWithClock(path, timeutil.RealClock{})
}

// OpenWithClock is Open with an injectable clock for timestamps.
func OpenWithClock(path string, clock timeutil.Clock) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers anyway, and an in-memory database exists
	// only on the connection that created it.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	db := &DB{DB: sqlDB, clock: clock}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// InsertMeasurements stores ms under the given source label in a single
// transaction and returns the number of rows written.
func (db *DB) InsertMeasurements(ctx context.Context, source string, ms []radar.Measurement) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO measurements (source, rng, azimuth, elevation, time, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := formatTime(db.clock.Now())
	for i, m := range ms {
		if _, err := stmt.ExecContext(ctx, source, m.Range, m.Azimuth, m.Elevation, m.Time, now); err != nil {
			return 0, fmt.Errorf("failed to insert measurement %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(ms), nil
}

// LoadMeasurements returns the measurements recorded under source, or all
// measurements when source is empty, in timestamp order. Rows sharing a
// timestamp keep their insertion order.
func (db *DB) LoadMeasurements(ctx context.Context, source string) ([]radar.Measurement, error) {
	query := `SELECT rng, azimuth, elevation, time FROM measurements`
	var args []interface{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY time, measurement_id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	var out []radar.Measurement
	for rows.Next() {
		var m radar.Measurement
		if err := rows.Scan(&m.Range, &m.Azimuth, &m.Elevation, &m.Time); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	RunID     string
	CreatedAt time.Time
	Source    string
	Groups    int
	Stats     pipeline.Stats
	Config    pipeline.Config
}

// SaveRun stores a run's statistics, samples and associations.
func (db *DB) SaveRun(ctx context.Context, source string, res *pipeline.Result, cfg pipeline.Config) error {
	if res == nil || res.RunID == "" {
		return errors.New("store: run has no ID")
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode run config: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	s := res.Stats
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (
			run_id, created_at, source, group_count, measurements, bootstrap,
			updated, gated, degraded, no_candidates, skipped_groups, config_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, formatTime(db.clock.Now()), source, res.Groups, s.Measurements, s.Bootstrap,
		s.Updated, s.Gated, s.Degraded, s.NoCandidates, s.SkippedGroup, string(cfgJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, smp := range res.Samples {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_samples (
				run_id, seq, time, rng, azimuth, elevation, x, y, z, vx, vy, vz
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, i, smp.Time, smp.Range, smp.Azimuth, smp.Elevation,
			smp.Position.X, smp.Position.Y, smp.Position.Z,
			smp.Velocity.X, smp.Velocity.Y, smp.Velocity.Z,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}

	for _, id := range res.SortedTrackIDs() {
		a := res.Associations[id]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_associations (
				run_id, track_id, report_id, report_index,
				track_x, track_y, track_z, report_x, report_y, report_z,
				time, mahalanobis
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, id, a.ReportID, a.ReportIndex,
			a.TrackPosition.X, a.TrackPosition.Y, a.TrackPosition.Z,
			a.ReportPosition.X, a.ReportPosition.Y, a.ReportPosition.Z,
			a.Time, a.Mahalanobis,
		)
		if err != nil {
			return fmt.Errorf("failed to insert association %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// LoadRun reads a run back from the database.
func (db *DB) LoadRun(ctx context.Context, runID string) (*pipeline.Result, error) {
	sum, err := db.runSummary(ctx, runID)
	if err != nil {
		return nil, err
	}
	res := &pipeline.Result{
		RunID:        sum.RunID,
		Groups:       sum.Groups,
		Stats:        sum.Stats,
		Associations: make(map[string]pipeline.Association),
	}

	rows, err := db.QueryContext(ctx,
		`SELECT time, rng, azimuth, elevation, x, y, z, vx, vy, vz
		 FROM run_samples WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s pipeline.Sample
		if err := rows.Scan(&s.Time, &s.Range, &s.Azimuth, &s.Elevation,
			&s.Position.X, &s.Position.Y, &s.Position.Z,
			&s.Velocity.X, &s.Velocity.Y, &s.Velocity.Z); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		res.Samples = append(res.Samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	arows, err := db.QueryContext(ctx,
		`SELECT track_id, report_id, report_index, track_x, track_y, track_z,
		        report_x, report_y, report_z, time, mahalanobis
		 FROM run_associations WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query associations: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var a pipeline.Association
		if err := arows.Scan(&a.TrackID, &a.ReportID, &a.ReportIndex,
			&a.TrackPosition.X, &a.TrackPosition.Y, &a.TrackPosition.Z,
			&a.ReportPosition.X, &a.ReportPosition.Y, &a.ReportPosition.Z,
			&a.Time, &a.Mahalanobis); err != nil {
			return nil, fmt.Errorf("failed to scan association: %w", err)
		}
		res.Associations[a.TrackID] = a
	}
	return res, arows.Err()
}

// ListRuns returns every stored run, newest first.
func (db *DB) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]RunSummary, 0, len(ids))
	for _, id := range ids {
		s, err := db.runSummary(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

func (db *DB) runSummary(ctx context.Context, runID string) (*RunSummary, error) {
	var (
		s         RunSummary
		createdAt string
		cfgJSON   string
	)
	err := db.QueryRowContext(ctx,
		`SELECT run_id, created_at, source, group_count, measurements, bootstrap,
		        updated, gated, degraded, no_candidates, skipped_groups, config_json
		 FROM runs WHERE run_id = ?`, runID).Scan(
		&s.RunID, &createdAt, &s.Source, &s.Groups, &s.Stats.Measurements, &s.Stats.Bootstrap,
		&s.Stats.Updated, &s.Stats.Gated, &s.Stats.Degraded, &s.Stats.NoCandidates,
		&s.Stats.SkippedGroup, &cfgJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	if s.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}
	if err := json.Unmarshal([]byte(cfgJSON), &s.Config); err != nil {
		return nil, fmt.Errorf("failed to decode run config: %w", err)
	}
	return &s, nil
}
