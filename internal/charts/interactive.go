package charts

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// Interactive renders the series as an ECharts line chart on a time axis
// with inside dataZoom on x, giving drag pan and wheel/pinch zoom.
func (r *Renderer) Interactive() (ChartSnippet, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: r.opts.Title,
			ChartID:   r.opts.ChartID,
			Theme:     types.ThemeWesteros,
			Width:     fmt.Sprintf("%dpx", r.opts.Width),
			Height:    fmt.Sprintf("%dpx", r.opts.Height),
		}),
		charts.WithTitleOpts(opts.Title{
			Title: r.opts.Title,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    true,
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: true,
			Top:  "bottom",
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "time",
			Name: "Time (UTC)",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  "Value",
			Scale: true,
		}),
	)

	for _, ds := range r.series.Datasets {
		data := make([]opts.LineData, len(ds.Values))
		for i, v := range ds.Values {
			data[i] = opts.LineData{Value: []interface{}{r.series.Labels[i].UnixMilli(), v}}
		}

		seriesOpts := []charts.SeriesOpts{
			charts.WithLineStyleOpts(opts.LineStyle{Color: ds.Style.BorderColor, Width: 2}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: ds.Style.BorderColor}),
		}
		if ds.Style.Fill {
			seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(opts.AreaStyle{Color: ds.Style.BackgroundColor, Opacity: 1}))
		}
		line.AddSeries(ds.Label, data, seriesOpts...)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return ChartSnippet{}, fmt.Errorf("failed to render interactive chart: %w", err)
	}

	return ChartSnippet{ID: r.opts.ChartID, Title: r.opts.Title, HTML: buf.String()}, nil
}
