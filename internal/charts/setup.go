package charts

import (
	"fmt"
	"sync"

	"timeframechart/internal/logger"

	"github.com/wcharczuk/go-chart/v2"
)

var (
	setupOnce sync.Once
	setupErr  error
)

// Setup loads the raster font once per process. Safe to call repeatedly.
// PNG and JPEG encoders are registered by this package's imports.
func Setup() error {
	setupOnce.Do(func() {
		if _, err := chart.GetDefaultFont(); err != nil {
			setupErr = fmt.Errorf("failed to load default chart font: %w", err)
			return
		}
		logger.Component("charts").Debug("chart capabilities registered", logger.Fields{
			"formats": []string{"png", "jpg"},
		})
	})
	return setupErr
}
