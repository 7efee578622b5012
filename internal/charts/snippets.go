package charts

// ChartSnippet is a rendered go-echarts page.
// HTML is a complete document with a single chart whose container id is ID.
type ChartSnippet struct {
	ID    string
	Title string
	HTML  string
}
