package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnknownTimeframe is returned when a timeframe name is not day, week or month
	ErrUnknownTimeframe = errors.New("unknown timeframe")

	// ErrUnknownFormat is returned when an export format is not png or jpg
	ErrUnknownFormat = errors.New("unknown image format")

	// ErrPointOutOfRange is returned when a selected point index is outside the series
	ErrPointOutOfRange = errors.New("point index out of range")
)

// DataPoint is a single record served by the data source
type DataPoint struct {
	Timestamp string  `json:"timestamp"` // ISO-8601 or other parseable date text
	Value     float64 `json:"value"`
}

// RawDataPoint is the wire shape of a record before validation.
// Value is a pointer so a missing field can be told apart from zero.
type RawDataPoint struct {
	Timestamp string   `json:"timestamp" validate:"required"`
	Value     *float64 `json:"value" validate:"required"`
}

// DataPoint converts a validated raw record
func (r RawDataPoint) DataPoint() DataPoint {
	var v float64
	if r.Value != nil {
		v = *r.Value
	}
	return DataPoint{Timestamp: r.Timestamp, Value: v}
}

// DatasetStyle holds presentation attributes for a dataset
type DatasetStyle struct {
	Fill            bool   `json:"fill"`
	BackgroundColor string `json:"background_color"`
	BorderColor     string `json:"border_color"`
}

// Dataset is one line of the chart
type Dataset struct {
	Label  string       `json:"label"`
	Values []float64    `json:"values"`
	Style  DatasetStyle `json:"style"`
}

// ChartSeries is the renderer-ready representation of the fetched data.
// Every dataset has exactly len(Labels) values.
type ChartSeries struct {
	Labels   []time.Time `json:"labels"`
	Datasets []Dataset   `json:"datasets"`
}

// EmptySeries returns the series a view holds before (or instead of) a successful load
func EmptySeries() ChartSeries {
	return ChartSeries{Datasets: []Dataset{}}
}

// Len returns the number of labels in the series
func (s ChartSeries) Len() int {
	return len(s.Labels)
}

// IsEmpty reports whether the series has no datasets or no points
func (s ChartSeries) IsEmpty() bool {
	return len(s.Datasets) == 0 || len(s.Labels) == 0
}

// Timeframe is the display unit of the time axis
type Timeframe string

const (
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
)

// Timeframes lists the supported timeframes in control panel order
var Timeframes = []Timeframe{TimeframeDay, TimeframeWeek, TimeframeMonth}

// ParseTimeframe parses a timeframe name case-insensitively
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(strings.ToLower(strings.TrimSpace(s))) {
	case TimeframeDay:
		return TimeframeDay, nil
	case TimeframeWeek:
		return TimeframeWeek, nil
	case TimeframeMonth:
		return TimeframeMonth, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTimeframe, s)
	}
}

// ButtonLabel returns the control panel caption for the timeframe
func (tf Timeframe) ButtonLabel() string {
	switch tf {
	case TimeframeWeek:
		return "Weekly"
	case TimeframeMonth:
		return "Monthly"
	default:
		return "Daily"
	}
}

// Duration returns the nominal length of one axis unit
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	case TimeframeMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ImageFormat is a raster export format
type ImageFormat string

const (
	FormatPNG ImageFormat = "png"
	FormatJPG ImageFormat = "jpg"
)

// ParseImageFormat parses an export format; "jpeg" is accepted for jpg
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of the format
func (f ImageFormat) ContentType() string {
	if f == FormatJPG {
		return "image/jpeg"
	}
	return "image/png"
}

// Filename returns the download name of an export in this format
func (f ImageFormat) Filename() string {
	return "chart." + string(f)
}

// TimeWindow is the visible range of the time axis after pan/zoom.
// A zero bound means the window is open on that side.
type TimeWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// IsZero reports whether the window covers the whole series
func (w TimeWindow) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

// Contains reports whether t lies inside the window
func (w TimeWindow) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// PointSelection is the result of resolving a clicked point
type PointSelection struct {
	Index   int       `json:"index"`
	Dataset string    `json:"dataset"`
	Label   time.Time `json:"label"`
	Value   float64   `json:"value"`
}

// Message renders the selection as a notification text
func (p PointSelection) Message() string {
	return fmt.Sprintf("Data point: %g\nLabel: %s", p.Value, p.Label.Format(time.RFC1123))
}
