package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		envVars     map[string]string
		expectError bool
		validate    func(*testing.T, *Config)
	}{
		{
			name:        "defaults",
			envVars:     map[string]string{},
			expectError: false,
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Port != "8981" {
					t.Errorf("Expected default Port to be '8981', got '%s'", cfg.Port)
				}
				if cfg.DataObject != "data.json" {
					t.Errorf("Expected default DataObject 'data.json', got '%s'", cfg.DataObject)
				}
				if cfg.FetchTimeout != 10*time.Second {
					t.Errorf("Expected default FetchTimeout 10s, got %s", cfg.FetchTimeout)
				}
				if cfg.StorageMode != "local" {
					t.Errorf("Expected default StorageMode 'local', got '%s'", cfg.StorageMode)
				}
				if cfg.LocalDataDir != "./data" {
					t.Errorf("Expected default LocalDataDir './data', got '%s'", cfg.LocalDataDir)
				}
				if cfg.ExportArchive {
					t.Error("Expected ExportArchive to default to false")
				}
				if cfg.ViewIdleTTL != 30*time.Minute {
					t.Errorf("Expected default ViewIdleTTL 30m, got %s", cfg.ViewIdleTTL)
				}
				if cfg.ChartTitle != "Timeframe Chart" {
					t.Errorf("Expected default ChartTitle, got '%s'", cfg.ChartTitle)
				}
				if cfg.ChartWidth != 1024 || cfg.ChartHeight != 512 {
					t.Errorf("Expected default chart size 1024x512, got %dx%d", cfg.ChartWidth, cfg.ChartHeight)
				}
				if cfg.RateLimitPerMinute != 120 {
					t.Errorf("Expected default RateLimitPerMinute 120, got %d", cfg.RateLimitPerMinute)
				}
				if cfg.Environment != "development" {
					t.Errorf("Expected default Environment 'development', got '%s'", cfg.Environment)
				}
				if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
					t.Errorf("Expected default log settings info/json, got %s/%s", cfg.LogLevel, cfg.LogFormat)
				}
			},
		},
		{
			name: "custom configuration values",
			envVars: map[string]string{
				"PORT":           "9000",
				"DATA_URL":       "https://example.com/series.json",
				"FETCH_TIMEOUT":  "3s",
				"STORAGE_MODE":   "gcs",
				"GCS_BUCKET":     "charts-bucket",
				"EXPORT_ARCHIVE": "true",
				"VIEW_IDLE_TTL":  "5m",
				"CHART_WIDTH":    "800",
				"CHART_HEIGHT":   "400",
				"ENVIRONMENT":    "production",
				"LOG_LEVEL":      "debug",
				"LOG_FORMAT":     "text",
			},
			expectError: false,
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Port != "9000" {
					t.Errorf("Expected Port '9000', got '%s'", cfg.Port)
				}
				if cfg.DataSourceURL() != "https://example.com/series.json" {
					t.Errorf("Expected explicit data URL, got '%s'", cfg.DataSourceURL())
				}
				if cfg.FetchTimeout != 3*time.Second {
					t.Errorf("Expected FetchTimeout 3s, got %s", cfg.FetchTimeout)
				}
				if cfg.GCSBucket != "charts-bucket" {
					t.Errorf("Expected GCSBucket 'charts-bucket', got '%s'", cfg.GCSBucket)
				}
				if !cfg.ExportArchive {
					t.Error("Expected ExportArchive to be true")
				}
				if cfg.ViewIdleTTL != 5*time.Minute {
					t.Errorf("Expected ViewIdleTTL 5m, got %s", cfg.ViewIdleTTL)
				}
				if cfg.ChartWidth != 800 || cfg.ChartHeight != 400 {
					t.Errorf("Expected chart size 800x400, got %dx%d", cfg.ChartWidth, cfg.ChartHeight)
				}
				if !cfg.IsProduction() {
					t.Error("Expected IsProduction to be true")
				}
			},
		},
		{
			name:        "gcs mode without bucket",
			envVars:     map[string]string{"STORAGE_MODE": "gcs"},
			expectError: true,
		},
		{
			name:        "unsupported storage mode",
			envVars:     map[string]string{"STORAGE_MODE": "s3"},
			expectError: true,
		},
		{
			name:        "non-positive chart size",
			envVars:     map[string]string{"CHART_WIDTH": "0"},
			expectError: true,
		},
		{
			name:        "malformed duration",
			envVars:     map[string]string{"FETCH_TIMEOUT": "soon"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv()
			defer clearEnv()

			for key, value := range tt.envVars {
				os.Setenv(key, value)
			}

			cfg, err := Load(context.Background())

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestDataSourceURLDefault(t *testing.T) {
	cfg := &Config{Port: "8981", DataObject: "data.json"}
	if got := cfg.DataSourceURL(); got != "http://localhost:8981/data.json" {
		t.Errorf("Expected local data URL, got '%s'", got)
	}

	cfg.DataObject = "/nested/points.json"
	if got := cfg.DataSourceURL(); got != "http://localhost:8981/nested/points.json" {
		t.Errorf("Expected leading slash to be trimmed, got '%s'", got)
	}
}

func TestGetVersion(t *testing.T) {
	original, had := os.LookupEnv("APP_VERSION")
	defer func() {
		if had {
			os.Setenv("APP_VERSION", original)
		} else {
			os.Unsetenv("APP_VERSION")
		}
	}()

	os.Setenv("APP_VERSION", "1.2.3")
	if v := GetVersion(); v != "1.2.3" {
		t.Errorf("Expected version from environment, got '%s'", v)
	}

	os.Unsetenv("APP_VERSION")
	if v := GetVersion(); v == "" {
		t.Error("Expected a fallback version")
	}
}

func clearEnv() {
	envVars := []string{
		"PORT", "RATE_LIMIT_PER_MINUTE", "DATA_URL", "DATA_OBJECT", "FETCH_TIMEOUT",
		"STORAGE_MODE", "LOCAL_DATA_DIR", "GCS_BUCKET", "EXPORT_ARCHIVE", "VIEW_IDLE_TTL",
		"CHART_TITLE", "CHART_WIDTH", "CHART_HEIGHT", "PAGE_NOTES_FILE",
		"ENVIRONMENT", "LOG_LEVEL", "LOG_FORMAT",
	}
	for _, env := range envVars {
		os.Unsetenv(env)
	}
}
