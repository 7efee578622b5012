package mocks

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"timeframechart/internal/models"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	req, _ := http.NewRequest("GET", url, nil)
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestMockService(t *testing.T) {
	m := NewMockService(http.StatusOK, `[]`)
	defer m.Close()

	status, body := get(t, m.URL())
	if status != http.StatusOK || body != `[]` {
		t.Errorf("Unexpected response %d %s", status, body)
	}

	m.SetResponse(http.StatusServiceUnavailable, `down`)
	status, body = get(t, m.URL()+"/anything")
	if status != http.StatusServiceUnavailable || body != `down` {
		t.Errorf("Unexpected response after SetResponse: %d %s", status, body)
	}

	if m.Hits() != 2 {
		t.Errorf("Expected 2 hits, got %d", m.Hits())
	}
	if m.LastAccept() != "application/json" {
		t.Errorf("Unexpected Accept header %q", m.LastAccept())
	}
}

func TestNewMockServiceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(`[{"timestamp":"2024-01-01","value":1}]`), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := NewMockServiceFromFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer m.Close()

	if _, body := get(t, m.URL()); body != `[{"timestamp":"2024-01-01","value":1}]` {
		t.Errorf("Unexpected body %s", body)
	}

	if _, err := NewMockServiceFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for a missing fixture")
	}
}

func TestDailyPayload(t *testing.T) {
	start := time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC)
	var points []models.DataPoint
	if err := json.Unmarshal([]byte(DailyPayload(start, 1, 2, 3)), &points); err != nil {
		t.Fatalf("Payload is not valid JSON: %v", err)
	}

	if len(points) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(points))
	}
	if points[2].Timestamp != "2024-02-01T00:00:00Z" || points[2].Value != 3 {
		t.Errorf("Unexpected last point %+v", points[2])
	}
	if DailyPayload(start) != "[]" {
		t.Error("Expected an empty array for no values")
	}
}
