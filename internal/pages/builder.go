package pages

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"timeframechart/internal/charts"
	"timeframechart/internal/models"
	"timeframechart/internal/view"
)

const (
	emptyMessage      = "No data to display."
	loadFailedMessage = "Data could not be loaded. The chart is empty."
)

// ViewSource is the part of a view the page is rendered from
type ViewSource interface {
	ID() string
	Chart() (charts.ChartSnippet, bool, error)
	Axis() charts.AxisConfig
	State() view.State
}

// Builder renders chart pages with the control panel and optional notes
type Builder struct {
	title    string
	goldmark goldmark.Markdown
	notes    template.HTML
}

type timeframeButton struct {
	Value string
	Label string
}

type controlsData struct {
	CSS          template.CSS
	ViewID       string
	Timeframes   []timeframeButton
	Empty        bool
	EmptyMessage string
	Notes        template.HTML
}

type scriptData struct {
	ViewID  string
	ChartID string
	Axis    map[string]interface{}
}

// NewBuilder creates a page builder
func NewBuilder(title string) *Builder {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)

	return &Builder{
		title:    title,
		goldmark: md,
	}
}

// ConvertMarkdownToHTML converts markdown to HTML using goldmark.
// Raw HTML in the source is not passed through.
func (b *Builder) ConvertMarkdownToHTML(markdownContent string) (string, error) {
	var buf bytes.Buffer
	if err := b.goldmark.Convert([]byte(markdownContent), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return buf.String(), nil
}

// SetNotes renders markdown shown below the control panel
func (b *Builder) SetNotes(markdownContent string) error {
	out, err := b.ConvertMarkdownToHTML(markdownContent)
	if err != nil {
		return err
	}
	b.notes = template.HTML(out)
	return nil
}

// Build renders the page of a view. Views without a mounted chart get an
// empty-state page with the same controls.
func (b *Builder) Build(v ViewSource) ([]byte, error) {
	snippet, ok, err := v.Chart()
	if err != nil {
		return nil, err
	}

	state := v.State()
	controls, err := b.renderControls(v.ID(), state)
	if err != nil {
		return nil, err
	}

	chartID := snippet.ID
	doc := snippet.HTML
	if !ok {
		var buf bytes.Buffer
		if err := emptyPageTemplate.Execute(&buf, struct{ Title string }{b.title}); err != nil {
			return nil, fmt.Errorf("failed to render empty page: %w", err)
		}
		doc = buf.String()
	}

	var script bytes.Buffer
	if err := scriptTemplate.Execute(&script, scriptData{
		ViewID:  v.ID(),
		ChartID: chartID,
		Axis:    v.Axis().EChartsOption(),
	}); err != nil {
		return nil, fmt.Errorf("failed to render page script: %w", err)
	}

	page, err := inject(doc, controls, script.String())
	if err != nil {
		return nil, err
	}
	return []byte(page), nil
}

func (b *Builder) renderControls(viewID string, state view.State) (string, error) {
	data := controlsData{
		CSS:          template.CSS(stylesCSS),
		ViewID:       viewID,
		Empty:        state.Points == 0,
		EmptyMessage: emptyMessage,
		Notes:        b.notes,
	}
	if state.Error != "" {
		data.EmptyMessage = loadFailedMessage
	}
	for _, tf := range models.Timeframes {
		data.Timeframes = append(data.Timeframes, timeframeButton{Value: string(tf), Label: tf.ButtonLabel()})
	}

	var buf bytes.Buffer
	if err := controlsTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render controls: %w", err)
	}
	return buf.String(), nil
}

var errNoBody = errors.New("document has no body")

// inject places head content right after <body> and tail content right before </body>
func inject(doc, head, tail string) (string, error) {
	lower := strings.ToLower(doc)
	open := strings.Index(lower, "<body")
	if open < 0 {
		return "", errNoBody
	}
	openEnd := strings.Index(lower[open:], ">")
	closeIdx := strings.LastIndex(lower, "</body>")
	if openEnd < 0 || closeIdx < 0 {
		return "", errNoBody
	}
	openEnd += open + 1
	if closeIdx < openEnd {
		return "", errNoBody
	}

	var sb strings.Builder
	sb.Grow(len(doc) + len(head) + len(tail))
	sb.WriteString(doc[:openEnd])
	sb.WriteString(head)
	sb.WriteString(doc[openEnd:closeIdx])
	sb.WriteString(tail)
	sb.WriteString(doc[closeIdx:])
	return sb.String(), nil
}
