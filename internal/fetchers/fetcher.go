package fetchers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"timeframechart/internal/logger"
	"timeframechart/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
)

// ErrMalformedPayload is returned when the data source answers with something
// other than a JSON array of {timestamp, value} records
var ErrMalformedPayload = errors.New("malformed payload")

// DataFetcher retrieves the data file and turns it into a chart series
type DataFetcher struct {
	client     *resty.Client
	validate   *validator.Validate
	normalizer *DataNormalizer
	log        *logger.Logger
}

// NewDataFetcher creates a fetcher performing a single best-effort GET per call
func NewDataFetcher(timeout time.Duration) *DataFetcher {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return &DataFetcher{
		client:     client,
		validate:   validator.New(),
		normalizer: NewDataNormalizer(),
		log:        logger.Component("fetcher"),
	}
}

// FetchDataPoints downloads and validates the records served at url
func (f *DataFetcher) FetchDataPoints(ctx context.Context, url string) ([]models.DataPoint, error) {
	start := time.Now()

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from %s: %w", url, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("data source returned status %d", resp.StatusCode())
	}

	points, err := f.decode(resp.Body())
	if err != nil {
		return nil, err
	}

	f.log.Debug("data fetched", logger.Fields{
		"url":      url,
		"records":  len(points),
		"duration": time.Since(start).String(),
	})
	return points, nil
}

// FetchSeries downloads the records at url and transforms them into a series
func (f *DataFetcher) FetchSeries(ctx context.Context, url string) (Result, error) {
	points, err := f.FetchDataPoints(ctx, url)
	if err != nil {
		return Result{}, err
	}

	result := f.normalizer.BuildSeries(points)
	for _, r := range result.Rejected {
		f.log.Warn("record rejected", logger.Fields{
			"index":     r.Index,
			"timestamp": r.Timestamp,
			"reason":    r.Reason,
		})
	}
	return result, nil
}

func (f *DataFetcher) decode(body []byte) ([]models.DataPoint, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedPayload)
	}

	var raw []models.RawDataPoint
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	points := make([]models.DataPoint, 0, len(raw))
	for i, r := range raw {
		if err := f.validate.Struct(r); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedPayload, i, err)
		}
		points = append(points, r.DataPoint())
	}
	return points, nil
}
