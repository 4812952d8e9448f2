package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/abdul-hamid-achik/apisuite/packages/report"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary `json:"summary"`
	Runs     []JSONRun   `json:"runs"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

// JSONSummary totals every run in the output
type JSONSummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Errors int `json:"errors"`
}

// JSONRun is one suite or case batch
type JSONRun struct {
	Name     string          `json:"name"`
	ReportID int64           `json:"report_id,omitempty"`
	Summary  report.Summary  `json:"summary"`
	Results  []*model.Result `json:"results"`
}

// JSONFormatter formats test results as JSON
type JSONFormatter struct {
	writer io.Writer
	runs   []JSONRun
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		runs:   make([]JSONRun, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatRun(run *Run) {
	results := run.Results
	if results == nil {
		results = []*model.Result{}
	}
	f.runs = append(f.runs, JSONRun{
		Name:     run.Name,
		ReportID: run.ReportID,
		Summary:  run.Summary,
		Results:  results,
	})
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual test results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var sum JSONSummary
	for _, r := range f.runs {
		sum.Total += r.Summary.Total
		sum.Passed += r.Summary.Pass
		sum.Failed += r.Summary.Fail
		sum.Errors += r.Summary.Error
	}

	output := JSONOutput{
		Summary:  sum,
		Runs:     f.runs,
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
