package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/abdul-hamid-achik/apisuite/packages/report"
)

// Run is one invocation's results as handed to a formatter. ReportID is 0
// when nothing was persisted.
type Run struct {
	Name     string
	ReportID int64
	Results  []*model.Result
	Summary  report.Summary
}

// NewRun builds a Run, summarizing results.
func NewRun(name string, reportID int64, results []*model.Result) *Run {
	return &Run{Name: name, ReportID: reportID, Results: results, Summary: report.Summarize(results)}
}

// Formatter renders runs.
type Formatter interface {
	FormatRun(run *Run)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that buffer runs and write them
// out in one document.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Formats lists the names accepted by New.
var Formats = []string{"console", "json", "junit", "tap"}

// New returns the formatter for format, writing to w.
func New(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch format {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %v)", format, Formats)
	}
}

// failedAssertions renders each failed assertion on one line.
func failedAssertions(r *model.Result) []string {
	var out []string
	for _, d := range r.Assertions.Details {
		if d.Result == model.StatusSuccess {
			continue
		}
		line := fmt.Sprintf("%s %s: expected %s, got %s", d.Check, d.Comparator, d.Expect, d.Actual)
		if d.Message != "" {
			line += ". " + d.Message
		}
		out = append(out, line)
	}
	return out
}
