package mocks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"timeframechart/internal/models"
)

// MockService is a data source for tests. Every request gets the configured
// status and body.
type MockService struct {
	server *httptest.Server

	mu         sync.Mutex
	status     int
	body       []byte
	hits       int
	lastAccept string
}

// NewMockService starts a data source answering with status and body
func NewMockService(status int, body string) *MockService {
	m := &MockService{status: status, body: []byte(body)}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// NewMockServiceFromFile starts a data source answering 200 with the contents of a fixture file
func NewMockServiceFromFile(path string) (*MockService, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mock data file: %w", err)
	}
	return NewMockService(http.StatusOK, string(content)), nil
}

func (m *MockService) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.hits++
	m.lastAccept = r.Header.Get("Accept")
	status, body := m.status, m.body
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// URL returns the address of the data source
func (m *MockService) URL() string {
	return m.server.URL
}

// SetResponse replaces the canned response
func (m *MockService) SetResponse(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	m.body = []byte(body)
}

// Hits returns how many requests were served
func (m *MockService) Hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits
}

// LastAccept returns the Accept header of the most recent request
func (m *MockService) LastAccept() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAccept
}

// Close shuts the data source down
func (m *MockService) Close() {
	m.server.Close()
}

// DailyPayload renders values as a JSON array of points one day apart, starting at start
func DailyPayload(start time.Time, values ...float64) string {
	points := make([]models.DataPoint, len(values))
	for i, v := range values {
		points[i] = models.DataPoint{
			Timestamp: start.AddDate(0, 0, i).UTC().Format(time.RFC3339),
			Value:     v,
		}
	}
	data, _ := json.Marshal(points)
	return string(data)
}
