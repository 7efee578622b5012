package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/joho/godotenv"

	"timeframechart/internal/charts"
	"timeframechart/internal/fetchers"
	"timeframechart/internal/logger"
	"timeframechart/internal/models"
	"timeframechart/internal/storage"
)

// LocalRunner renders static chart images without the HTTP service
type LocalRunner struct {
	fetcher *fetchers.DataFetcher
	store   storage.StorageClient
	opts    charts.Options
	log     *logger.Logger
}

// RunOptions selects what one run renders
type RunOptions struct {
	DataURL    string
	Timeframes []models.Timeframe
	Formats    []models.ImageFormat
}

// Output describes one written image
type Output struct {
	Timeframe models.Timeframe   `json:"timeframe"`
	Format    models.ImageFormat `json:"format"`
	Path      string             `json:"path"`
	Bytes     int                `json:"bytes"`
}

func NewLocalRunner(outDir string, timeout time.Duration, opts charts.Options) (*LocalRunner, error) {
	store, err := storage.NewLocalStorageClient(outDir)
	if err != nil {
		return nil, err
	}
	return &LocalRunner{
		fetcher: fetchers.NewDataFetcher(timeout),
		store:   store,
		opts:    opts,
		log:     logger.Component("local-runner"),
	}, nil
}

// Run fetches the series once and writes one image per timeframe and format,
// followed by index.html
func (lr *LocalRunner) Run(ctx context.Context, ro RunOptions) ([]Output, error) {
	startTime := time.Now()

	lr.log.Info("Fetching data points", logger.Fields{"url": ro.DataURL})
	result, err := lr.fetcher.FetchSeries(ctx, ro.DataURL)
	if err != nil {
		return nil, fmt.Errorf("data fetch failed: %w", err)
	}

	renderer := charts.NewRenderer(result.Series, lr.opts)

	var outputs []Output
	for _, tf := range ro.Timeframes {
		renderer.SetAxis(charts.AxisFor(tf))
		for _, format := range ro.Formats {
			data, err := renderer.Encode(format, models.TimeWindow{})
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s chart: %w", format, err)
			}

			name := fmt.Sprintf("chart-%s.%s", tf, format)
			if err := lr.store.StoreFile(ctx, name, data); err != nil {
				return nil, err
			}
			outputs = append(outputs, Output{Timeframe: tf, Format: format, Path: name, Bytes: len(data)})
			lr.log.Info("Chart written", logger.Fields{"path": name, "bytes": len(data)})
		}
	}

	index := renderIndex(summaryMarkdown(ro.DataURL, result, outputs))
	if err := lr.store.StoreFile(ctx, "index.html", []byte(index)); err != nil {
		return nil, err
	}

	lr.log.Info("Local run completed", logger.Fields{
		"duration_ms": time.Since(startTime).Milliseconds(),
		"images":      len(outputs),
		"points":      len(result.Series.Labels),
		"rejected":    len(result.Rejected),
	})
	return outputs, nil
}

// summaryMarkdown describes a run: the data source, rejected records and the written images
func summaryMarkdown(dataURL string, result fetchers.Result, outputs []Output) string {
	var sb strings.Builder

	sb.WriteString("# Timeframe Chart\n\n")
	fmt.Fprintf(&sb, "Source: <%s>\n\n", dataURL)
	fmt.Fprintf(&sb, "- Points: %d\n", len(result.Series.Labels))
	if n := len(result.Series.Labels); n > 0 {
		fmt.Fprintf(&sb, "- Range: %s to %s\n",
			result.Series.Labels[0].Format(time.RFC3339),
			result.Series.Labels[n-1].Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "- Rejected: %d\n\n", len(result.Rejected))

	if len(result.Rejected) > 0 {
		sb.WriteString("## Rejected records\n\n| Index | Timestamp | Reason |\n|---|---|---|\n")
		for _, r := range result.Rejected {
			fmt.Fprintf(&sb, "| %d | %s | %s |\n", r.Index, escapeMarkdown(r.Timestamp), escapeMarkdown(r.Reason))
		}
		sb.WriteString("\n")
	}

	for _, o := range outputs {
		fmt.Fprintf(&sb, "## %s (%s)\n\n![%s chart](%s)\n\n", o.Timeframe.ButtonLabel(), o.Format, o.Timeframe, o.Path)
	}
	return sb.String()
}

var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"`", "\\`",
	"|", "\\|",
	"*", "\\*",
	"_", "\\_",
	"[", "\\[",
	"]", "\\]",
	"<", "\\<",
	">", "\\>",
	"\r", " ",
	"\n", " ",
)

// escapeMarkdown turns input text into a literal inline markdown span
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// renderIndex converts the run summary into a standalone HTML page
func renderIndex(markdownText string) string {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(markdownText))

	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.CompletePage | html.SkipHTML,
		Title: "Timeframe Chart",
	}
	return string(markdown.Render(doc, html.NewRenderer(opts)))
}

func parseTimeframes(s string) ([]models.Timeframe, error) {
	if strings.EqualFold(s, "all") {
		return []models.Timeframe{models.TimeframeDay, models.TimeframeWeek, models.TimeframeMonth}, nil
	}
	var out []models.Timeframe
	for _, part := range strings.Split(s, ",") {
		tf, err := models.ParseTimeframe(part)
		if err != nil {
			return nil, err
		}
		out = append(out, tf)
	}
	return out, nil
}

func parseFormats(s string) ([]models.ImageFormat, error) {
	if strings.EqualFold(s, "all") {
		return []models.ImageFormat{models.FormatPNG, models.FormatJPG}, nil
	}
	var out []models.ImageFormat
	for _, part := range strings.Split(s, ",") {
		f, err := models.ParseImageFormat(part)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func main() {
	dataURL := flag.String("data", "http://localhost:8981/data.json", "URL of the JSON data points")
	outDir := flag.String("out", filepath.Join("output", time.Now().Format("2006-01-02_15-04-05")), "output directory")
	timeframes := flag.String("timeframe", "all", "day, week, month, a comma list, or all")
	formats := flag.String("format", "all", "png, jpg, a comma list, or all")
	title := flag.String("title", "Timeframe Chart", "chart title")
	width := flag.Int("width", 1024, "image width in pixels")
	height := flag.Int("height", 512, "image height in pixels")
	timeout := flag.Duration("timeout", 10*time.Second, "fetch timeout")
	flag.Parse()

	// .env is optional; the real environment always wins
	_ = godotenv.Load()
	logger.Configure(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	log := logger.Component("local-runner")

	tfs, err := parseTimeframes(*timeframes)
	if err != nil {
		log.Fatal("Invalid -timeframe", err)
	}
	fmts, err := parseFormats(*formats)
	if err != nil {
		log.Fatal("Invalid -format", err)
	}
	if err := charts.Setup(); err != nil {
		log.Fatal("Chart setup failed", err)
	}

	runner, err := NewLocalRunner(*outDir, *timeout, charts.Options{Title: *title, Width: *width, Height: *height})
	if err != nil {
		log.Fatal("Failed to prepare output directory", err)
	}

	outputs, err := runner.Run(context.Background(), RunOptions{DataURL: *dataURL, Timeframes: tfs, Formats: fmts})
	if err != nil {
		log.Fatal("Local run failed", err)
	}

	summary, _ := json.MarshalIndent(map[string]interface{}{
		"status":  "success",
		"out_dir": *outDir,
		"outputs": outputs,
	}, "", "  ")
	fmt.Fprintln(os.Stdout, string(summary))
}
