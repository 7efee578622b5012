package fetchers

import (
	"fmt"
	"strings"
	"time"

	"timeframechart/internal/models"
)

// Presentation of the single dataset built from the data file
const (
	DatasetLabel       = "Value over Time"
	DatasetBackground  = "rgba(75,192,192,0.2)"
	DatasetBorderColor = "rgba(75,192,192,1)"
)

// Accepted timestamp layouts, tried in order. Layouts without a zone read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Jan 2, 2006",
	"Jan 2 2006 15:04:05",
}

// Rejection describes a record left out of the series
type Rejection struct {
	Index     int    `json:"index"`
	Timestamp string `json:"timestamp"`
	Reason    string `json:"reason"`
}

// Result is the output of a transformation
type Result struct {
	Series   models.ChartSeries `json:"series"`
	Rejected []Rejection        `json:"rejected,omitempty"`
}

// DataNormalizer maps data points into a chart series
type DataNormalizer struct{}

// NewDataNormalizer creates a new data normalizer instance
func NewDataNormalizer() *DataNormalizer {
	return &DataNormalizer{}
}

// BuildSeries produces one dataset from points, keeping input order.
// Records whose timestamp cannot be parsed are skipped and reported.
func (n *DataNormalizer) BuildSeries(points []models.DataPoint) Result {
	labels := make([]time.Time, 0, len(points))
	values := make([]float64, 0, len(points))
	var rejected []Rejection

	for i, p := range points {
		ts, err := ParseTimestamp(p.Timestamp)
		if err != nil {
			rejected = append(rejected, Rejection{Index: i, Timestamp: p.Timestamp, Reason: err.Error()})
			continue
		}
		labels = append(labels, ts)
		values = append(values, p.Value)
	}

	return Result{
		Series: models.ChartSeries{
			Labels: labels,
			Datasets: []models.Dataset{{
				Label:  DatasetLabel,
				Values: values,
				Style: models.DatasetStyle{
					Fill:            false,
					BackgroundColor: DatasetBackground,
					BorderColor:     DatasetBorderColor,
				},
			}},
		},
		Rejected: rejected,
	}
}

// ParseTimestamp parses date text in any accepted layout and returns it in UTC
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
