package charts

import (
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"timeframechart/internal/models"
)

const maxRasterTicks = 12

// AxisConfig describes how the time axis is displayed for a timeframe.
// MinInterval and Formatter drive the interactive chart; TickStep and
// TickLayout drive raster exports.
type AxisConfig struct {
	Timeframe   models.Timeframe `json:"timeframe"`
	MinInterval int64            `json:"min_interval"`
	Formatter   string           `json:"formatter"`
	TickStep    time.Duration    `json:"-"`
	TickLayout  string           `json:"-"`
}

// AxisFor returns the axis configuration of a timeframe
func AxisFor(tf models.Timeframe) AxisConfig {
	switch tf {
	case models.TimeframeWeek:
		return AxisConfig{
			Timeframe:   tf,
			MinInterval: tf.Duration().Milliseconds(),
			Formatter:   "{MMM} {d}",
			TickStep:    tf.Duration(),
			TickLayout:  "Jan 2",
		}
	case models.TimeframeMonth:
		return AxisConfig{
			Timeframe:   tf,
			MinInterval: tf.Duration().Milliseconds(),
			Formatter:   "{MMM} {yyyy}",
			TickStep:    tf.Duration(),
			TickLayout:  "Jan 2006",
		}
	default:
		return AxisConfig{
			Timeframe:   models.TimeframeDay,
			MinInterval: models.TimeframeDay.Duration().Milliseconds(),
			Formatter:   "{yyyy}-{MM}-{dd}",
			TickStep:    models.TimeframeDay.Duration(),
			TickLayout:  "Jan 2",
		}
	}
}

// EChartsOption returns the partial option applied with setOption on the live chart
func (a AxisConfig) EChartsOption() map[string]interface{} {
	return map[string]interface{}{
		"xAxis": map[string]interface{}{
			"minInterval": a.MinInterval,
			"axisLabel": map[string]interface{}{
				"formatter":   a.Formatter,
				"hideOverlap": true,
			},
		},
	}
}

// Ticks returns labelled ticks between minT and maxT, widening the step
// in whole units when the span would produce too many of them.
func (a AxisConfig) Ticks(minT, maxT time.Time) []chart.Tick {
	if a.TickStep <= 0 || !maxT.After(minT) {
		return nil
	}

	minT, maxT = minT.UTC(), maxT.UTC()
	units := int(maxT.Sub(minT)/(a.TickStep*maxRasterTicks)) + 1

	var ticks []chart.Tick
	next := a.firstTick(minT, units)
	for t := next; !t.After(maxT); t = a.advance(t, units) {
		if t.Before(minT) {
			continue
		}
		ticks = append(ticks, chart.Tick{
			Value: chart.TimeToFloat64(t),
			Label: t.Format(a.TickLayout),
		})
	}

	if len(ticks) < 2 {
		return nil
	}
	return ticks
}

func (a AxisConfig) firstTick(minT time.Time, units int) time.Time {
	if a.Timeframe == models.TimeframeMonth {
		return time.Date(minT.Year(), minT.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	step := int64((a.TickStep * time.Duration(units)).Seconds())
	s := minT.Unix()
	return time.Unix((s/step)*step, 0).UTC()
}

func (a AxisConfig) advance(t time.Time, units int) time.Time {
	if a.Timeframe == models.TimeframeMonth {
		return t.AddDate(0, units, 0)
	}
	return t.Add(a.TickStep * time.Duration(units))
}
