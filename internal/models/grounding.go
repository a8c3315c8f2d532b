package models

// Source is a citation returned by one of the retrieval tools.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GroundingChunk carries either a web or a maps source, never both.
type GroundingChunk struct {
	Web  *Source `json:"web,omitempty"`
	Maps *Source `json:"maps,omitempty"`
}

type GroundingMetadata struct {
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
}

type ChartType string

const (
	ChartBar  ChartType = "bar"
	ChartLine ChartType = "line"
	ChartPie  ChartType = "pie"
)

func (t ChartType) Valid() bool {
	return t == ChartBar || t == ChartLine || t == ChartPie
}

type ChartDataPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type ChartSpec struct {
	Type   ChartType        `json:"type"`
	Title  string           `json:"title"`
	Data   []ChartDataPoint `json:"data"`
	XLabel string           `json:"xLabel,omitempty"`
	YLabel string           `json:"yLabel,omitempty"`
}
