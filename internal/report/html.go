package report

import (
	"fmt"
	"io"

	"github.com/banshee-data/radartrack/internal/fsutil"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// AssetsHost serves the echarts JavaScript for generated pages.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// RenderHTML writes a page holding one interactive chart per axis to w.
func RenderHTML(w io.Writer, in Input) error {
	if in.empty() {
		return ErrNothingToPlot
	}

	page := components.NewPage()
	page.SetPageTitle(in.title())
	page.SetAssetsHost(AssetsHost)

	for _, a := range Axes {
		page.AddCharts(newLineChart(in, a))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

// WriteHTML renders the page into the named file.
func WriteHTML(fsys fsutil.FileSystem, path string, in Input) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := RenderHTML(f, in); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newLineChart(in Input, a Axis) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: a.Label(), Subtitle: in.title()}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: a.Label(), Scale: opts.Bool(true)}),
	)

	for _, s := range in.seriesFor(a) {
		data := make([]opts.LineData, len(s.points))
		for i, pt := range s.points {
			data[i] = opts.LineData{Value: []interface{}{pt.t, pt.v}}
		}
		if s.line {
			line.AddSeries(s.name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
			continue
		}
		// Raw measurements are shown as markers only.
		line.AddSeries(s.name, data,
			charts.WithLineStyleOpts(opts.LineStyle{Opacity: opts.Float(0)}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
		)
	}
	return line
}
