package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/radartrack/internal/config"
	"github.com/banshee-data/radartrack/internal/fsutil"
	"github.com/banshee-data/radartrack/internal/monitoring"
	"github.com/banshee-data/radartrack/internal/radar"
	"github.com/banshee-data/radartrack/internal/report"
	"github.com/banshee-data/radartrack/internal/source"
	"github.com/banshee-data/radartrack/internal/store"
	"github.com/banshee-data/radartrack/internal/timeutil"
	"github.com/banshee-data/radartrack/internal/tracking/pipeline"
	"github.com/banshee-data/radartrack/internal/version"
)

var (
	csvPath        = flag.String("csv", "", "Measurement CSV export to track")
	referencePath  = flag.String("reference", "", "CSV with F_TIM,F_X,F_Y,F_Z reference track columns")
	dbPath         = flag.String("db", "", "SQLite database for measurements and runs")
	dbSource       = flag.String("source", "", "Source label for measurements stored in or loaded from -db")
	serialPort     = flag.String("serial", "", "Serial port streaming range,azimuth,elevation,time lines")
	serialLines    = flag.Int("serial-lines", 0, "Stop reading the serial port after this many measurements (0 = until EOF or interrupt)")
	configPath     = flag.String("config", "", "Tuning config JSON file (defaults built in)")
	window         = flag.Float64("window", 0, "Group window in measurement time units (overrides config)")
	plotsDir       = flag.String("plots", "", "Directory for PNG charts")
	htmlPath       = flag.String("html", "", "Path for an HTML chart page")
	legacyVelocity = flag.Bool("legacy-velocity", false, "Seed bootstrap velocity with the reversed sign used by older recordings")
	verbose        = flag.Bool("verbose", false, "Log gate rejections and other debug detail")
	save           = flag.Bool("save", false, "Store the measurements and the run in -db")
	showVersion    = flag.Bool("version", false, "Print version information and exit")
)

// options is the parsed command line.
type options struct {
	CSV            string
	Reference      string
	DB             string
	Source         string
	Serial         string
	SerialLines    int
	Config         string
	Window         float64
	WindowSet      bool
	Plots          string
	HTML           string
	LegacyVelocity bool
	Save           bool
}

func optionsFromFlags() options {
	o := options{
		CSV:            *csvPath,
		Reference:      *referencePath,
		DB:             *dbPath,
		Source:         *dbSource,
		Serial:         *serialPort,
		SerialLines:    *serialLines,
		Config:         *configPath,
		Window:         *window,
		Plots:          *plotsDir,
		HTML:           *htmlPath,
		LegacyVelocity: *legacyVelocity,
		Save:           *save,
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "window" {
			o.WindowSet = true
		}
	})
	return o
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}
	monitoring.SetVerbose(*verbose)
	log.Print(version.String())

	opts := optionsFromFlags()
	if err := opts.validate(); err != nil {
		log.Fatalf("invalid flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := timeutil.RealClock{}
	start := clock.Now()
	if err := run(ctx, opts, fsutil.OSFileSystem{}, clock, os.Stdout); err != nil {
		log.Fatalf("radartrack: %v", err)
	}
	log.Printf("done in %v", clock.Since(start))
}

func (o options) validate() error {
	inputs := 0
	for _, s := range []string{o.CSV, o.Serial} {
		if s != "" {
			inputs++
		}
	}
	if inputs > 1 {
		return errors.New("-csv and -serial are mutually exclusive")
	}
	if inputs == 0 && o.DB == "" {
		return errors.New("one of -csv, -serial or -db is required")
	}
	if o.Save && o.DB == "" {
		return errors.New("-save requires -db")
	}
	if o.SerialLines < 0 {
		return errors.New("-serial-lines must not be negative")
	}
	return nil
}

// tuning loads the tuning file, or the built-in defaults, and applies the
// flag overrides.
func (o options) tuning() (*config.TuningConfig, error) {
	tc := config.DefaultTuningConfig()
	if o.Config != "" {
		var err error
		if tc, err = config.LoadTuningConfig(o.Config); err != nil {
			return nil, err
		}
	}
	if o.WindowSet {
		w := o.Window
		tc.MaxWindow = &w
	}
	if o.LegacyVelocity {
		legacy := true
		tc.LegacyVelocitySign = &legacy
	}
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return tc, nil
}

func run(ctx context.Context, o options, fsys fsutil.FileSystem, clock timeutil.Clock, stdout io.Writer) error {
	tc, err := o.tuning()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := pipeline.ConfigFromTuning(tc)

	var db *store.DB
	if o.DB != "" {
		if db, err = store.OpenWithClock(o.DB, clock); err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
	}

	ms, label, err := loadMeasurements(ctx, o, fsys, db, tc)
	if err != nil {
		return err
	}
	monitoring.Logf("loaded %d measurements from %s", len(ms), label)
	if o.Serial != "" && ctx.Err() != nil {
		// The interrupt only stopped collection.
		ctx = context.WithoutCancel(ctx)
	}

	if o.Save && (o.CSV != "" || o.Serial != "") {
		n, err := db.InsertMeasurements(ctx, label, ms)
		if err != nil {
			return fmt.Errorf("store measurements: %w", err)
		}
		monitoring.Logf("stored %d measurements under %q", n, label)
	}

	res, err := pipeline.Run(ctx, ms, cfg)
	if err != nil {
		return err
	}
	printAssociations(stdout, res)

	if o.Save {
		if err := db.SaveRun(ctx, label, res, cfg); err != nil {
			return fmt.Errorf("store run: %w", err)
		}
		monitoring.Logf("stored run %s", res.RunID)
	}

	if o.Plots == "" && o.HTML == "" {
		return nil
	}

	in := report.Input{Title: label, Measurements: ms, Result: res}
	if o.Reference != "" {
		if in.Reference, err = loadReference(fsys, o.Reference, tc.GetReferenceRangeDivisor()); err != nil {
			return err
		}
	}
	if o.Plots != "" {
		paths, err := report.WritePNG(fsys, o.Plots, in)
		if err != nil {
			return fmt.Errorf("write plots: %w", err)
		}
		monitoring.Logf("wrote %d plots to %s", len(paths), o.Plots)
	}
	if o.HTML != "" {
		if err := report.WriteHTML(fsys, o.HTML, in); err != nil {
			return fmt.Errorf("write html: %w", err)
		}
		monitoring.Logf("wrote %s", o.HTML)
	}
	return nil
}

// loadMeasurements reads from the selected input and returns the
// measurements with the label they are stored under.
func loadMeasurements(ctx context.Context, o options, fsys fsutil.FileSystem, db *store.DB, tc *config.TuningConfig) ([]radar.Measurement, string, error) {
	label := o.Source

	switch {
	case o.CSV != "":
		f, err := fsys.Open(o.CSV)
		if err != nil {
			return nil, "", fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		ms, err := source.ReadMeasurementsCSV(f)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", o.CSV, err)
		}
		if label == "" {
			label = filepath.Base(o.CSV)
		}
		return ms, label, nil

	case o.Serial != "":
		port, err := source.OpenSerial(o.Serial, source.PortOptions{BaudRate: tc.GetSerialBaudRate()})
		if err != nil {
			return nil, "", err
		}
		defer port.Close()
		ms, err := source.ReadSerial(ctx, port, o.SerialLines)
		// An interrupt ends collection; track what arrived.
		if err != nil && !errors.Is(err, context.Canceled) {
			return nil, "", err
		}
		if label == "" {
			label = filepath.Base(o.Serial)
		}
		return ms, label, nil

	default:
		ms, err := db.LoadMeasurements(ctx, label)
		if err != nil {
			return nil, "", err
		}
		if label == "" {
			label = "all"
		}
		return ms, label, nil
	}
}

func loadReference(fsys fsutil.FileSystem, path string, divisor float64) ([]radar.Measurement, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference: %w", err)
	}
	defer f.Close()
	refs, err := source.ReadReferenceCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return source.ReferenceSpherical(refs, divisor), nil
}

func printAssociations(w io.Writer, res *pipeline.Result) {
	for _, id := range res.SortedTrackIDs() {
		a := res.Associations[id]
		fmt.Fprintf(w, "%s: Position %s, Best Report %s, Report Position %s\n",
			id, a.TrackPosition, a.ReportID, a.ReportPosition)
	}
	s := res.Stats
	fmt.Fprintf(w, "groups=%d measurements=%d updated=%d gated=%d degraded=%d no_candidates=%d\n",
		res.Groups, s.Measurements, s.Updated, s.Gated, s.Degraded, s.NoCandidates)
}
