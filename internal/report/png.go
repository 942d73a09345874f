package report

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/radartrack/internal/fsutil"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	pngWidth  = 14 * vg.Inch
	pngHeight = 6 * vg.Inch
)

// WritePNG writes one chart per axis into dir as <axis>.png and returns the
// paths written.
func WritePNG(fsys fsutil.FileSystem, dir string, in Input) ([]string, error) {
	if in.empty() {
		return nil, ErrNothingToPlot
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	var written []string
	for _, a := range Axes {
		p, err := newPlot(in, a)
		if err != nil {
			return written, fmt.Errorf("%s plot: %w", a, err)
		}
		path := filepath.Join(dir, a.String()+".png")
		if err := savePlot(fsys, p, path); err != nil {
			return written, fmt.Errorf("save %s plot: %w", a, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func newPlot(in Input, a Axis) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - %s", in.title(), a.Label())
	p.X.Label.Text = "Time"
	p.Y.Label.Text = a.Label()
	p.Add(plotter.NewGrid())

	for i, s := range in.seriesFor(a) {
		xys := make(plotter.XYs, len(s.points))
		for j, pt := range s.points {
			xys[j] = plotter.XY{X: pt.t, Y: pt.v}
		}

		if s.line {
			l, err := plotter.NewLine(xys)
			if err != nil {
				return nil, err
			}
			l.Color = plotutil.Color(i)
			l.Width = vg.Points(1.5)
			p.Add(l)
			p.Legend.Add(s.name, l)
			continue
		}

		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		sc.Color = plotutil.Color(i)
		sc.Shape = draw.CircleGlyph{}
		sc.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(s.name, sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func savePlot(fsys fsutil.FileSystem, p *plot.Plot, path string) error {
	wt, err := p.WriterTo(pngWidth, pngHeight, "png")
	if err != nil {
		return err
	}
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
