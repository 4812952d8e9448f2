package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// JSONExporter exports metrics to JSON format
type JSONExporter struct {
	writer  io.Writer
	pretty  bool
	version string
}

// JSONOption is a functional option for JSONExporter
type JSONOption func(*JSONExporter)

// WithJSONPretty enables pretty-printed JSON output
func WithJSONPretty(pretty bool) JSONOption {
	return func(j *JSONExporter) {
		j.pretty = pretty
	}
}

// WithJSONVersion records the producing version in the metadata
func WithJSONVersion(v string) JSONOption {
	return func(j *JSONExporter) {
		j.version = v
	}
}

// NewJSONExporter creates a new JSON metrics exporter
func NewJSONExporter(w io.Writer, opts ...JSONOption) *JSONExporter {
	j := &JSONExporter{writer: w, pretty: true}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// JSONMetricsOutput is the complete JSON output structure
type JSONMetricsOutput struct {
	Metadata JSONMetadata      `json:"metadata"`
	Summary  *AggregateMetrics `json:"summary"`
	Cases    []*CaseMetrics    `json:"cases"`
}

// JSONMetadata contains metadata about the export
type JSONMetadata struct {
	GeneratedAt string `json:"generated_at"`
	Version     string `json:"version,omitempty"`
}

// Export writes the aggregate and every case as one document.
func (j *JSONExporter) Export(agg *AggregateMetrics, cases []*CaseMetrics) error {
	if cases == nil {
		cases = []*CaseMetrics{}
	}
	out := JSONMetricsOutput{
		Metadata: JSONMetadata{
			GeneratedAt: time.Now().Format(time.RFC3339),
			Version:     j.version,
		},
		Summary: agg,
		Cases:   cases,
	}

	var data []byte
	var err error
	if j.pretty {
		data, err = json.MarshalIndent(out, "", "  ")
	} else {
		data, err = json.Marshal(out)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if _, err := j.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
