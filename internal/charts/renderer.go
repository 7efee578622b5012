package charts

import (
	"fmt"
	"strings"

	"timeframechart/internal/models"
)

// Options configures a renderer
type Options struct {
	Title   string
	Width   int
	Height  int
	ChartID string
}

// Renderer draws one chart series interactively (go-echarts) and as raster images (go-chart).
// It is not safe for concurrent use; the owning view serializes access.
type Renderer struct {
	series models.ChartSeries
	axis   AxisConfig
	opts   Options
}

// NewRenderer mounts a renderer for series with the day axis
func NewRenderer(series models.ChartSeries, o Options) *Renderer {
	if o.Width <= 0 {
		o.Width = 1024
	}
	if o.Height <= 0 {
		o.Height = 512
	}
	if o.ChartID == "" {
		o.ChartID = "timeframe_chart"
	}
	o.ChartID = strings.ReplaceAll(o.ChartID, "-", "")

	return &Renderer{
		series: series,
		axis:   AxisFor(models.TimeframeDay),
		opts:   o,
	}
}

// ChartID returns the DOM id of the interactive chart
func (r *Renderer) ChartID() string {
	return r.opts.ChartID
}

// Axis returns the current axis configuration
func (r *Renderer) Axis() AxisConfig {
	return r.axis
}

// SetAxis changes the axis display unit; the series is untouched
func (r *Renderer) SetAxis(axis AxisConfig) {
	r.axis = axis
}

// HitTest resolves the point at index of the first dataset
func (r *Renderer) HitTest(index int) (models.PointSelection, error) {
	if len(r.series.Datasets) == 0 || index < 0 || index >= r.series.Len() {
		return models.PointSelection{}, fmt.Errorf("%w: %d", models.ErrPointOutOfRange, index)
	}

	ds := r.series.Datasets[0]
	return models.PointSelection{
		Index:   index,
		Dataset: ds.Label,
		Label:   r.series.Labels[index],
		Value:   ds.Values[index],
	}, nil
}
