package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"timeframechart/internal/models"
)

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseWindow reads the optional from/to query parameters in unix milliseconds
func parseWindow(r *http.Request) (models.TimeWindow, error) {
	var window models.TimeWindow
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return window, fmt.Errorf("invalid from: %q", v)
		}
		window.From = time.UnixMilli(ms).UTC()
	}
	if v := q.Get("to"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return window, fmt.Errorf("invalid to: %q", v)
		}
		window.To = time.UnixMilli(ms).UTC()
	}
	if !window.From.IsZero() && !window.To.IsZero() && window.To.Before(window.From) {
		return window, fmt.Errorf("window ends before it starts")
	}
	return window, nil
}
