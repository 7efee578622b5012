package charts

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"timeframechart/internal/models"
)

const emptyCaption = "No data"

// Encode renders the points inside window as an image in the given format.
// A zero window exports the whole series; an empty frame is drawn as a blank
// image with a caption.
func (r *Renderer) Encode(format models.ImageFormat, window models.TimeWindow) ([]byte, error) {
	if format != models.FormatPNG && format != models.FormatJPG {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownFormat, format)
	}

	graph, ok := r.rasterChart(window)
	if !ok {
		return encodeImage(blankFrame(r.opts.Width, r.opts.Height, emptyCaption), format)
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	if format == models.FormatPNG {
		return buf.Bytes(), nil
	}

	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered chart: %w", err)
	}
	return encodeImage(img, format)
}

// DataURI wraps encoded image bytes in a data URI
func DataURI(format models.ImageFormat, data []byte) string {
	return "data:" + format.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// rasterChart builds the go-chart graph for the visible points; ok is false
// when nothing falls inside the window.
func (r *Renderer) rasterChart(window models.TimeWindow) (chart.Chart, bool) {
	if len(r.series.Datasets) == 0 {
		return chart.Chart{}, false
	}

	var series []chart.Series
	var plotted [][]float64
	var minT, maxT time.Time
	minY, maxY := math.MaxFloat64, -math.MaxFloat64

	for _, ds := range r.series.Datasets {
		var xs []time.Time
		var ys []float64
		for i, t := range r.series.Labels {
			if !window.Contains(t) {
				continue
			}
			v := ds.Values[i]
			xs = append(xs, t)
			ys = append(ys, v)

			if minT.IsZero() || t.Before(minT) {
				minT = t
			}
			if maxT.IsZero() || t.After(maxT) {
				maxT = t
			}
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
		if len(xs) == 0 {
			continue
		}

		style := chart.Style{
			StrokeColor: parseRGBA(ds.Style.BorderColor),
			StrokeWidth: 2,
			DotColor:    parseRGBA(ds.Style.BorderColor),
			DotWidth:    3,
		}
		if ds.Style.Fill {
			style.FillColor = parseRGBA(ds.Style.BackgroundColor)
		}
		plotted = append(plotted, ys)
		series = append(series, chart.TimeSeries{
			Name:    ds.Label,
			Style:   style,
			XValues: xs,
			YValues: ys,
		})
	}

	if len(series) == 0 {
		return chart.Chart{}, false
	}

	if !window.From.IsZero() {
		minT = window.From
	}
	if !window.To.IsZero() {
		maxT = window.To
	}
	if !maxT.After(minT) {
		minT = minT.Add(-r.axis.TickStep / 2)
		maxT = maxT.Add(r.axis.TickStep / 2)
	}
	minY, maxY, scale := yRange(minY, maxY)
	if scale != 1 {
		for _, ys := range plotted {
			for i := range ys {
				ys[i] *= scale
			}
		}
	}

	layout := r.axis.TickLayout
	graph := chart.Chart{
		Title: r.opts.Title,
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: drawing.ColorBlack,
		},
		Width:  r.opts.Width,
		Height: r.opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 30, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Time (UTC)",
			Style: chart.Style{FontSize: 9},
			Range: &chart.ContinuousRange{
				Min: chart.TimeToFloat64(minT),
				Max: chart.TimeToFloat64(maxT),
			},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return chart.TimeFromFloat64(f).UTC().Format(layout)
				}
				return ""
			},
			Ticks: r.axis.Ticks(minT, maxT),
		},
		YAxis: chart.YAxis{
			Style: chart.Style{FontSize: 9},
			Range: &chart.ContinuousRange{Min: minY, Max: maxY},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.6g", f/scale)
				}
				return ""
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	return graph, true
}

// yRange pads [lo, hi] for plotting. Values near the float64 limits are
// multiplied by the returned scale so that the padded range width stays finite.
func yRange(lo, hi float64) (float64, float64, float64) {
	scale := 1.0
	if math.Max(math.Abs(lo), math.Abs(hi)) > math.MaxFloat64/4 {
		scale = 0.25
		lo, hi = lo*scale, hi*scale
	}

	if hi-lo == 0 {
		pad := math.Max(math.Abs(hi)*0.1, 1)
		return lo - pad, hi + pad, scale
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad, scale
}

func encodeImage(img image.Image, format models.ImageFormat) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case models.FormatJPG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpeg.DefaultQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// blankFrame draws an empty plot area with a centred caption
func blankFrame(w, h int, caption string) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 250, G: 250, B: 250, A: 255}), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	dr := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 90, G: 90, B: 90, A: 255}),
		Face: face,
	}
	tw := dr.MeasureString(caption).Ceil()
	x := (w - tw) / 2
	y := (h + face.Metrics().Ascent.Ceil()) / 2
	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(caption)
	return img
}

// parseRGBA reads css colors of the form rgba(r,g,b,a) or #rrggbb
func parseRGBA(css string) drawing.Color {
	var r, g, b uint8
	var a float64
	if n, _ := fmt.Sscanf(css, "rgba(%d,%d,%d,%g)", &r, &g, &b, &a); n == 4 {
		return drawing.Color{R: r, G: g, B: b, A: uint8(math.Round(a * 255))}
	}
	if len(css) == 7 && css[0] == '#' {
		return drawing.ColorFromHex(css[1:])
	}
	return drawing.ColorBlack
}
