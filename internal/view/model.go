package view

import (
	"context"
	"sync"

	"timeframechart/internal/charts"
	"timeframechart/internal/fetchers"
	"timeframechart/internal/logger"
	"timeframechart/internal/models"
)

// SeriesSource fetches and transforms the data file
type SeriesSource interface {
	FetchSeries(ctx context.Context, url string) (fetchers.Result, error)
}

// State is a read-only snapshot of a view
type State struct {
	ID        string               `json:"id"`
	Timeframe models.Timeframe     `json:"timeframe"`
	Points    int                  `json:"points"`
	Loaded    bool                 `json:"loaded"`
	Mounted   bool                 `json:"mounted"`
	Closed    bool                 `json:"closed"`
	Error     string               `json:"error,omitempty"`
	Rejected  []fetchers.Rejection `json:"rejected,omitempty"`
}

// Model holds the state of one mounted chart view
type Model struct {
	id     string
	url    string
	source SeriesSource
	opts   charts.Options
	log    *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	series    models.ChartSeries
	timeframe models.Timeframe
	renderer  *charts.Renderer
	rejected  []fetchers.Rejection
	loadErr   error
	started   bool
	loaded    bool
	closed    bool
}

// New creates a view with an empty series and the day timeframe
func New(id string, source SeriesSource, url string, opts charts.Options) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	if opts.ChartID == "" {
		opts.ChartID = "chart_" + id
	}

	return &Model{
		id:        id,
		url:       url,
		source:    source,
		opts:      opts,
		log:       logger.Component("view"),
		ctx:       ctx,
		cancel:    cancel,
		series:    models.EmptySeries(),
		timeframe: models.TimeframeDay,
	}
}

// ID returns the view identifier
func (m *Model) ID() string {
	return m.id
}

// Load performs the view's single fetch and mounts the renderer on success.
// Failures leave the series empty and are reported through LoadError.
func (m *Model) Load(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.ctx, cancel)
	defer stop()

	result, err := m.source.FetchSeries(fetchCtx, m.url)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.log.Debug("view closed before load finished", logger.Fields{"view_id": m.id})
		return
	}

	m.loaded = true
	if err != nil {
		m.loadErr = err
		m.log.Warn("data load failed", logger.Fields{
			"view_id": m.id,
			"url":     m.url,
			"error":   err.Error(),
		})
		return
	}

	m.series = result.Series
	m.rejected = result.Rejected
	m.renderer = charts.NewRenderer(m.series, m.opts)
	m.renderer.SetAxis(charts.AxisFor(m.timeframe))

	m.log.Info("view mounted", logger.Fields{
		"view_id":  m.id,
		"points":   m.series.Len(),
		"rejected": len(m.rejected),
	})
}

// LoadError returns the failure of the initial load, if any
func (m *Model) LoadError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadErr
}

// Series returns the current chart series
func (m *Model) Series() models.ChartSeries {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.series
}

// Timeframe returns the current axis unit
func (m *Model) Timeframe() models.Timeframe {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timeframe
}

// Axis returns the axis configuration of the current timeframe
func (m *Model) Axis() charts.AxisConfig {
	return charts.AxisFor(m.Timeframe())
}

// HasRenderer reports whether a chart is mounted
func (m *Model) HasRenderer() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.renderer != nil
}

// SetTimeframe changes the axis unit and returns the new axis configuration.
// The series is never refetched or rebuilt.
func (m *Model) SetTimeframe(tf models.Timeframe) (charts.AxisConfig, error) {
	tf, err := models.ParseTimeframe(string(tf))
	if err != nil {
		return charts.AxisConfig{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return charts.AxisFor(m.timeframe), nil
	}

	m.timeframe = tf
	axis := charts.AxisFor(tf)
	if m.renderer != nil {
		m.renderer.SetAxis(axis)
	}
	return axis, nil
}

// ExportImage encodes the visible frame. Without a mounted renderer it does nothing
// and returns nil bytes and a nil error.
func (m *Model) ExportImage(format models.ImageFormat, window models.TimeWindow) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed || m.renderer == nil {
		return nil, nil
	}
	return m.renderer.Encode(format, window)
}

// SelectPoint resolves a clicked point index to its label and value
func (m *Model) SelectPoint(index int) (models.PointSelection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed || m.renderer == nil {
		return models.PointSelection{}, models.ErrPointOutOfRange
	}
	return m.renderer.HitTest(index)
}

// Chart renders the interactive chart; ok is false when no renderer is mounted
func (m *Model) Chart() (snippet charts.ChartSnippet, ok bool, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed || m.renderer == nil {
		return charts.ChartSnippet{}, false, nil
	}
	snippet, err = m.renderer.Interactive()
	return snippet, err == nil, err
}

// State returns a snapshot of the view
func (m *Model) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := State{
		ID:        m.id,
		Timeframe: m.timeframe,
		Points:    m.series.Len(),
		Loaded:    m.loaded,
		Mounted:   m.renderer != nil,
		Closed:    m.closed,
		Rejected:  m.rejected,
	}
	if m.loadErr != nil {
		st.Error = m.loadErr.Error()
	}
	return st
}

// Close tears the view down and cancels an in-flight load.
// Every later operation is a no-op.
func (m *Model) Close() {
	m.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.renderer = nil
}
