package storage

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// ExportObjectPath generates the archive path of an exported chart image
// Format: exports/YYYY/MM/DD/chart-YYYY-MM-DD-HH-MM-SS.<ext>
func ExportObjectPath(timestamp time.Time, ext string) string {
	ts := timestamp.UTC()
	return fmt.Sprintf("exports/%04d/%02d/%02d/chart-%04d-%02d-%02d-%02d-%02d-%02d.%s",
		ts.Year(), ts.Month(), ts.Day(),
		ts.Year(), ts.Month(), ts.Day(),
		ts.Hour(), ts.Minute(), ts.Second(),
		strings.TrimPrefix(ext, "."))
}

// CleanPath normalizes a relative object path and rejects paths escaping the root
func CleanPath(p string) (string, error) {
	norm := strings.ReplaceAll(p, "\\", "/")
	for _, part := range strings.Split(norm, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q escapes storage root", ErrInvalidPath, p)
		}
	}

	cleaned := path.Clean("/" + norm)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}

// GetContentType determines the MIME content type based on file extension
func GetContentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	case ".html":
		return "text/html"
	case ".md":
		return "text/markdown"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
