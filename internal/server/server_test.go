package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"timeframechart/internal/charts"
	"timeframechart/internal/config"
	"timeframechart/internal/fetchers"
	"timeframechart/internal/pages"
	"timeframechart/internal/storage"
	"timeframechart/internal/view"
)

const testData = `[
	{"timestamp": "2024-01-01T00:00:00Z", "value": 10},
	{"timestamp": "2024-01-02T00:00:00Z", "value": 20},
	{"timestamp": "2024-01-03T00:00:00Z", "value": 15}
]`

var archiveTime = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

var viewIDPattern = regexp.MustCompile(`data-view="([0-9a-f-]+)"`)

type testEnv struct {
	ts     *httptest.Server
	server *Server
	dir    string
}

func newTestEnv(t *testing.T, data string, archive bool, opts ...func(*config.Config)) *testEnv {
	t.Helper()

	dir := t.TempDir()
	if data != "" {
		if err := os.WriteFile(filepath.Join(dir, "data.json"), []byte(data), 0644); err != nil {
			t.Fatalf("Failed to write data file: %v", err)
		}
	}

	cfg := &config.Config{
		Port:               "0",
		DataObject:         "data.json",
		StorageMode:        "local",
		LocalDataDir:       dir,
		FetchTimeout:       2 * time.Second,
		ViewIdleTTL:        time.Minute,
		ExportArchive:      archive,
		ChartTitle:         "Test Chart",
		ChartWidth:         320,
		ChartHeight:        160,
		RateLimitPerMinute: 1000,
		Environment:        "test",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store, err := storage.NewLocalStorageClient(dir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	var dataURL string
	fetcher := fetchers.NewDataFetcher(cfg.FetchTimeout)
	registry := view.NewRegistry(cfg.ViewIdleTTL, func(id string) *view.Model {
		return view.New(id, fetcher, dataURL, charts.Options{
			Title:  cfg.ChartTitle,
			Width:  cfg.ChartWidth,
			Height: cfg.ChartHeight,
		})
	})

	srv := NewServer(cfg, store, registry, pages.NewBuilder(cfg.ChartTitle))
	srv.now = func() time.Time { return archiveTime }
	ts := httptest.NewServer(srv.SetupRoutes())
	dataURL = ts.URL + "/data.json"

	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return &testEnv{ts: ts, server: srv, dir: dir}
}

// mount loads the page and returns the id of the view it created
func (e *testEnv) mount(t *testing.T) string {
	t.Helper()
	return e.mountFrom(t, "")
}

// mountFrom loads the page as the client at ip
func (e *testEnv) mountFrom(t *testing.T, ip string) string {
	t.Helper()
	resp, err := e.getFrom(ip, "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 for page, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	match := viewIDPattern.FindSubmatch(body)
	if match == nil {
		t.Fatal("Page does not carry a view id")
	}
	return string(match[1])
}

// getFrom issues a GET as the client at ip; an empty ip sends no forwarding header
func (e *testEnv) getFrom(ip, path string) (*http.Response, error) {
	req, err := http.NewRequest("GET", e.ts.URL+path, nil)
	if err != nil {
		return nil, err
	}
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	return http.DefaultClient.Do(req)
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, testData, false)

	resp, err := http.Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Expected security headers on responses")
	}

	var health map[string]interface{}
	decodeJSON(t, resp, &health)
	if health["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", health["status"])
	}
}

func TestHandleDataFile(t *testing.T) {
	env := newTestEnv(t, testData, false)

	resp, err := http.Get(env.ts.URL + "/data.json")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != testData {
		t.Errorf("Unexpected data file body %s", body)
	}

	missing := newTestEnv(t, "", false)
	resp, err = http.Get(missing.ts.URL + "/data.json")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for missing data file, got %d", resp.StatusCode)
	}
}

func TestHandleRootMountsView(t *testing.T) {
	env := newTestEnv(t, testData, false)
	id := env.mount(t)

	resp, err := http.Get(env.ts.URL + "/views/" + id)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var state view.State
	decodeJSON(t, resp, &state)

	if !state.Loaded || !state.Mounted {
		t.Errorf("Expected loaded and mounted view, got %+v", state)
	}
	if state.Points != 3 {
		t.Errorf("Expected 3 points, got %d", state.Points)
	}
	if state.Timeframe != "day" {
		t.Errorf("Expected day timeframe, got %s", state.Timeframe)
	}
}

func TestHandleRootWithoutData(t *testing.T) {
	env := newTestEnv(t, "", false)
	id := env.mount(t)

	resp, err := http.Get(env.ts.URL + "/views/" + id)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var state view.State
	decodeJSON(t, resp, &state)
	if state.Mounted || state.Error == "" {
		t.Errorf("Expected an unmounted view with a load error, got %+v", state)
	}

	resp, err = http.Get(env.ts.URL + "/views/" + id + "/export?format=png")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204 export without renderer, got %d", resp.StatusCode)
	}
}

func TestHandleTimeframe(t *testing.T) {
	env := newTestEnv(t, testData, false)
	id := env.mount(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"weekly", "/views/" + id + "/timeframe/week", http.StatusOK},
		{"monthly", "/views/" + id + "/timeframe/MONTH", http.StatusOK},
		{"unknown timeframe", "/views/" + id + "/timeframe/year", http.StatusBadRequest},
		{"unknown view", "/views/nope/timeframe/day", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(env.ts.URL+tt.path, "application/json", nil)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}

	resp, err := http.Get(env.ts.URL + "/views/" + id)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var state view.State
	decodeJSON(t, resp, &state)
	if state.Timeframe != "month" || state.Points != 3 {
		t.Errorf("Expected month timeframe with unchanged points, got %+v", state)
	}
}

func TestHandleTimeframeResponse(t *testing.T) {
	env := newTestEnv(t, testData, false)
	id := env.mount(t)

	resp, err := http.Post(env.ts.URL+"/views/"+id+"/timeframe/week", "application/json", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var body struct {
		Timeframe string                 `json:"timeframe"`
		Option    map[string]interface{} `json:"option"`
	}
	decodeJSON(t, resp, &body)
	if body.Timeframe != "week" {
		t.Errorf("Expected week, got %s", body.Timeframe)
	}
	if _, ok := body.Option["xAxis"]; !ok {
		t.Error("Expected an xAxis option patch")
	}
}

func TestHandlePoint(t *testing.T) {
	env := newTestEnv(t, testData, false)
	id := env.mount(t)

	resp, err := http.Get(env.ts.URL + "/views/" + id + "/points/1")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var point struct {
		Index   int     `json:"index"`
		Value   float64 `json:"value"`
		Message string  `json:"message"`
	}
	decodeJSON(t, resp, &point)
	if point.Index != 1 || point.Value != 20 {
		t.Errorf("Unexpected point %+v", point)
	}
	if !strings.Contains(point.Message, "Data point: 20") {
		t.Errorf("Unexpected message %q", point.Message)
	}

	for path, status := range map[string]int{
		"/points/3":   http.StatusNotFound,
		"/points/-1":  http.StatusNotFound,
		"/points/abc": http.StatusBadRequest,
	} {
		resp, err := http.Get(env.ts.URL + "/views/" + id + path)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != status {
			t.Errorf("%s: expected %d, got %d", path, status, resp.StatusCode)
		}
	}
}

func TestHandleExport(t *testing.T) {
	env := newTestEnv(t, testData, false)
	id := env.mount(t)

	tests := []struct {
		format      string
		contentType string
		decoded     string
	}{
		{"png", "image/png", "png"},
		{"jpg", "image/jpeg", "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			resp, err := http.Get(env.ts.URL + "/views/" + id + "/export?format=" + tt.format)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("Expected 200, got %d", resp.StatusCode)
			}
			if resp.Header.Get("Content-Type") != tt.contentType {
				t.Errorf("Expected %s, got %s", tt.contentType, resp.Header.Get("Content-Type"))
			}
			if want := `attachment; filename="chart.` + tt.format + `"`; resp.Header.Get("Content-Disposition") != want {
				t.Errorf("Unexpected Content-Disposition %q", resp.Header.Get("Content-Disposition"))
			}
			body, _ := io.ReadAll(resp.Body)
			if _, name, err := image.Decode(bytes.NewReader(body)); err != nil || name != tt.decoded {
				t.Errorf("Expected a %s image, got %s (%v)", tt.decoded, name, err)
			}
		})
	}
}

func TestHandleExportInlineAndWindow(t *testing.T) {
	env := newTestEnv(t, testData, false)
	id := env.mount(t)

	from := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	to := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC).UnixMilli()
	url := env.ts.URL + "/views/" + id + "/export?format=jpg&inline=1&from=" +
		jsonNumber(from) + "&to=" + jsonNumber(to)

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var body struct {
		Filename string `json:"filename"`
		DataURI  string `json:"data_uri"`
	}
	decodeJSON(t, resp, &body)
	if body.Filename != "chart.jpg" {
		t.Errorf("Expected chart.jpg, got %s", body.Filename)
	}
	if !strings.HasPrefix(body.DataURI, "data:image/jpeg;base64,") {
		t.Errorf("Unexpected data URI prefix %.40s", body.DataURI)
	}
}

func TestHandleExportBadRequests(t *testing.T) {
	env := newTestEnv(t, testData, false)
	id := env.mount(t)

	for _, query := range []string{
		"format=gif",
		"",
		"format=png&from=soon",
		"format=png&from=2000&to=1000",
	} {
		resp, err := http.Get(env.ts.URL + "/views/" + id + "/export?" + query)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", query, resp.StatusCode)
		}
	}
}

func TestExportArchive(t *testing.T) {
	env := newTestEnv(t, testData, true)
	id := env.mount(t)

	resp, err := http.Get(env.ts.URL + "/views/" + id + "/export?format=png")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(env.ts.URL + "/exports")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var listing struct {
		Exports []string `json:"exports"`
	}
	decodeJSON(t, resp, &listing)

	want := "exports/2024/05/06/chart-2024-05-06-07-08-09.png"
	if len(listing.Exports) != 1 || listing.Exports[0] != want {
		t.Fatalf("Expected archived export %s, got %v", want, listing.Exports)
	}

	resp, err = http.Get(env.ts.URL + "/" + want)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("Expected archived image to be served, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestHandleClose(t *testing.T) {
	env := newTestEnv(t, testData, false)
	id := env.mount(t)

	resp, err := http.Post(env.ts.URL+"/views/"+id+"/close", "text/plain", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}

	resp, err = http.Get(env.ts.URL + "/views/" + id)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 after close, got %d", resp.StatusCode)
	}

	resp, err = http.Post(env.ts.URL+"/views/"+id+"/close", "text/plain", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 closing twice, got %d", resp.StatusCode)
	}
}

func TestDataFetchNotRateLimited(t *testing.T) {
	env := newTestEnv(t, testData, false, func(cfg *config.Config) {
		cfg.RateLimitPerMinute = 3
	})

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"} {
		env.mountFrom(t, ip)
	}

	id := env.mountFrom(t, "10.0.0.5")
	resp, err := env.getFrom("10.0.0.5", "/views/"+id)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var state view.State
	decodeJSON(t, resp, &state)

	if !state.Mounted || state.Points != 3 || state.Error != "" {
		t.Errorf("Expected the fifth view to load its data, got %+v", state)
	}
}

func TestRateLimitPerClient(t *testing.T) {
	env := newTestEnv(t, testData, false, func(cfg *config.Config) {
		cfg.RateLimitPerMinute = 3
	})

	var last int
	for i := 0; i < 4; i++ {
		resp, err := env.getFrom("10.0.0.9", "/health")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after the limit, got %d", last)
	}

	resp, err := env.getFrom("10.0.0.10", "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected another client to be unaffected, got %d", resp.StatusCode)
	}
}

// failingStorage reports backend failures; only the calls made by the file routes are implemented
type failingStorage struct {
	storage.StorageClient
	existsErr error
	getErr    error
}

func (f failingStorage) Close() error { return nil }

func (f failingStorage) FileExists(ctx context.Context, filePath string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return true, nil
}

func (f failingStorage) GetFile(ctx context.Context, filePath string) ([]byte, error) {
	return nil, f.getErr
}

func serveWith(t *testing.T, store storage.StorageClient, path string) int {
	t.Helper()
	cfg := &config.Config{DataObject: "data.json", RateLimitPerMinute: 1000, Environment: "test"}
	srv := NewServer(cfg, store, view.NewRegistry(time.Minute, nil), pages.NewBuilder("Test"))
	defer srv.Close()

	rr := httptest.NewRecorder()
	srv.SetupRoutes().ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
	return rr.Code
}

func TestFileRoutesStorageFailures(t *testing.T) {
	diskErr := errors.New("disk unavailable")

	tests := []struct {
		name   string
		store  failingStorage
		path   string
		status int
	}{
		{"data file stat fails", failingStorage{existsErr: diskErr}, "/data.json", http.StatusInternalServerError},
		{"data file read fails", failingStorage{getErr: diskErr}, "/data.json", http.StatusInternalServerError},
		{"export read fails", failingStorage{getErr: diskErr}, "/exports/2024/05/06/chart.png", http.StatusInternalServerError},
		{"export missing", failingStorage{getErr: storage.ErrNotFound}, "/exports/2024/05/06/chart.png", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := serveWith(t, tt.store, tt.path); got != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, got)
			}
		})
	}
}

func TestHandleExportFileInvalidPath(t *testing.T) {
	env := newTestEnv(t, testData, false)

	rr := httptest.NewRecorder()
	env.server.SetupRoutes().ServeHTTP(rr, httptest.NewRequest("GET", "/exports/..%5Csecret", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an escaping export path, got %d", rr.Code)
	}
}

func jsonNumber(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
