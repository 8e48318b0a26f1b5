package ai

// ChartType enum
type ChartType string

const (
	ChartBar  ChartType = "bar"
	ChartLine ChartType = "line"
	ChartPie  ChartType = "pie"
)

// Point is one labelled value in a chart series.
type Point struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type Chart struct {
	Type  ChartType `json:"type"`
	Title string    `json:"title"`
	Data  []Point   `json:"data"`
}

type Table struct {
	Title   string     `json:"title"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// QueryResult is a structured answer. Confidence is in [0,1].
type QueryResult struct {
	Content     string   `json:"content"`
	Confidence  float64  `json:"confidence"`
	Charts      []Chart  `json:"charts,omitempty"`
	Tables      []Table  `json:"tables,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}
