package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/speed.report/internal/stats"
	"github.com/banshee-data/speed.report/internal/units"
)

func bucketLabels(buckets []stats.Bucket) []string {
	labels := make([]string, len(buckets))
	for i, b := range buckets {
		labels[i] = ">" + strconv.FormatFloat(b.Threshold, 'g', -1, 64)
	}
	return labels
}

// statsChart renders the hour-of-day and speed histograms as an HTML page.
func (s *Server) statsChart(w http.ResponseWriter, r *http.Request) {
	st := s.radar.GetStats()
	unitLabel := units.Label(s.radar.Units())
	subtitle := fmt.Sprintf("%d readings, %s", st.Count, time.Now().Format(time.RFC3339))

	hours := make([]string, len(st.Hourly))
	hourly := make([]opts.BarData, len(st.Hourly))
	for h, n := range st.Hourly {
		hours[h] = fmt.Sprintf("%02d", h)
		hourly[h] = opts.BarData{Value: n}
	}
	hourBar := charts.NewBar()
	hourBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Radar statistics", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Readings by hour", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	hourBar.SetXAxis(hours).
		AddSeries("readings", hourly,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	speeds := make([]opts.BarData, len(st.SpeedBuckets))
	for i, b := range st.SpeedBuckets {
		speeds[i] = opts.BarData{Value: b.Count}
	}
	speedBar := charts.NewBar()
	speedBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Readings by speed (" + unitLabel + ")", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	speedBar.SetXAxis(bucketLabels(st.SpeedBuckets)).
		AddSeries("readings", speeds,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(hourBar, speedBar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// speedsPlot renders the speed histogram as a PNG.
func (s *Server) speedsPlot(w http.ResponseWriter, r *http.Request) {
	st := s.radar.GetStats()

	values := make(plotter.Values, len(st.SpeedBuckets))
	for i, b := range st.SpeedBuckets {
		values[i] = float64(b.Count)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Speed distribution (%d readings)", st.Count)
	p.X.Label.Text = "Speed (" + units.Label(s.radar.Units()) + ")"
	p.Y.Label.Text = "Readings"

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("plot error: %v", err))
		return
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(bucketLabels(st.SpeedBuckets)...)

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("plot error: %v", err))
		return
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("plot error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
