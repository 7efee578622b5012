package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the timeframe chart service
type Config struct {
	// Server configuration
	Port               string `env:"PORT,default=8981"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE,default=120"`

	// Data source configuration
	DataURL      string        `env:"DATA_URL"`
	DataObject   string        `env:"DATA_OBJECT,default=data.json"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT,default=10s"`

	// Storage backing the static data file and export archive
	StorageMode   string `env:"STORAGE_MODE,default=local"`
	LocalDataDir  string `env:"LOCAL_DATA_DIR,default=./data"`
	GCSBucket     string `env:"GCS_BUCKET"`
	ExportArchive bool   `env:"EXPORT_ARCHIVE,default=false"`

	// View and chart configuration
	ViewIdleTTL   time.Duration `env:"VIEW_IDLE_TTL,default=30m"`
	ChartTitle    string        `env:"CHART_TITLE,default=Timeframe Chart"`
	ChartWidth    int           `env:"CHART_WIDTH,default=1024"`
	ChartHeight   int           `env:"CHART_HEIGHT,default=512"`
	PageNotesFile string        `env:"PAGE_NOTES_FILE"`

	// Service configuration
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	LogFormat   string `env:"LOG_FORMAT,default=json"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	switch strings.ToLower(c.StorageMode) {
	case "local":
	case "gcs":
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when STORAGE_MODE=gcs")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_MODE %q", c.StorageMode)
	}
	if c.ChartWidth <= 0 || c.ChartHeight <= 0 {
		return fmt.Errorf("chart size must be positive, got %dx%d", c.ChartWidth, c.ChartHeight)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	return nil
}

// DataSourceURL returns the URL views fetch their data from.
// Without DATA_URL the service's own static data endpoint is used.
func (c *Config) DataSourceURL() string {
	if c.DataURL != "" {
		return c.DataURL
	}
	return "http://localhost:" + c.Port + "/" + strings.TrimPrefix(c.DataObject, "/")
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c != nil && c.Environment == "production"
}
