package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/core/vars"
	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/fatih/color"
)

// truncate shortens long values for display
func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatRun(run *Run) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Running: "+run.Name))

	for _, r := range run.Results {
		switch r.Status {
		case model.StatusSuccess:
			fmt.Fprintf(f.writer, "  %s %s %s\n", green("✓"), r.Name, cyan(timing(r)))
		case model.StatusFail:
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("✗"), r.Name, cyan(timing(r)))
		default:
			fmt.Fprintf(f.writer, "  %s %s %s\n", yellow("!"), r.Name, red(fmt.Sprintf("(%s)", r.Error)))
		}

		if f.verbose && r.Request != nil {
			fmt.Fprintf(f.writer, "    %s %s\n", r.Request.Method, r.Request.URL)
		}

		if r.Status == model.StatusFail {
			for _, d := range r.Assertions.Details {
				if d.Result == model.StatusSuccess {
					continue
				}
				fmt.Fprintf(f.writer, "    %s %s %s\n", red("→"), d.Check, d.Comparator)
				fmt.Fprintf(f.writer, "      Expected: %s\n", truncate(d.Expect, 100))
				fmt.Fprintf(f.writer, "      Actual:   %s\n", truncate(d.Actual, 100))
				if d.Message != "" {
					fmt.Fprintf(f.writer, "      %s\n", d.Message)
				}
			}
		}

		if f.verbose && len(r.Extractions) > 0 {
			fmt.Fprintf(f.writer, "    Extracted:\n")
			for _, ex := range r.Extractions {
				if ex.Found {
					fmt.Fprintf(f.writer, "      %s = %s\n", ex.Name, truncate(vars.Stringify(ex.Value), 100))
				} else {
					fmt.Fprintf(f.writer, "      %s %s\n", ex.Name, yellow("(no match)"))
				}
			}
		}
	}

	s := run.Summary
	fmt.Fprintf(f.writer, "\nTests: ")
	if s.Pass > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", s.Pass)))
	}
	if s.Fail > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", s.Fail)))
	}
	if s.Error > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d errors", s.Error)))
	}
	fmt.Fprintf(f.writer, "%d total\n", s.Total)
	fmt.Fprintf(f.writer, "Time:  %dms\n", s.Duration.Milliseconds())
	if s.Total > 0 {
		l := s.Latency
		fmt.Fprintf(f.writer, "Latency: p50 %.0fms, p95 %.0fms, p99 %.0fms, max %.0fms\n", l.P50, l.P95, l.P99, l.Max)
	}
	if run.ReportID != 0 {
		fmt.Fprintf(f.writer, "Report: #%d\n", run.ReportID)
	}
	fmt.Fprintf(f.writer, "\n")
}

func timing(r *model.Result) string {
	if r.StatusCode > 0 {
		return fmt.Sprintf("(%d, %dms)", r.StatusCode, r.Duration.Milliseconds())
	}
	return fmt.Sprintf("(%dms)", r.Duration.Milliseconds())
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("apisuite"), version)
}

// FormatReport prints a stored report and its records.
func (f *ConsoleFormatter) FormatReport(rep *model.Report) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s #%d %s\n", bold("Report"), rep.ID, rep.SuiteName)
	fmt.Fprintf(f.writer, "Started: %s\n", rep.StartTime.Format(time.RFC3339))
	fmt.Fprintf(f.writer, "Status:  %s\n", rep.Status)
	fmt.Fprintf(f.writer, "Cases:   %d total, %d passed, %d failed, %d errors\n", rep.Total, rep.Pass, rep.Fail, rep.Error)
	fmt.Fprintf(f.writer, "Time:    %.3fs\n", rep.Duration)

	results := make([]*model.Result, 0, len(rep.Records))
	for i := range rep.Records {
		results = append(results, ResultFromRecord(&rep.Records[i]))
	}
	for _, r := range results {
		switch r.Status {
		case model.StatusSuccess:
			fmt.Fprintf(f.writer, "  ✓ %s %s\n", r.Name, timing(r))
		case model.StatusFail:
			fmt.Fprintf(f.writer, "  ✗ %s %s\n", r.Name, timing(r))
		default:
			fmt.Fprintf(f.writer, "  ! %s (%s)\n", r.Name, r.Error)
		}
	}
}

// ResultFromRecord turns a stored record back into a result for display.
func ResultFromRecord(rec *model.Record) *model.Result {
	r := &model.Result{
		Name:       rec.CaseName,
		Status:     rec.Status,
		StatusCode: rec.StatusCode,
		StartTime:  rec.StartTime,
		Duration:   time.Duration(rec.Duration * float64(time.Second)),
		Error:      rec.ErrorMessage,
		Assertions: model.AssertionOutcome{Result: model.StatusSuccess, Details: rec.AssertionResults},
	}
	if rec.TestCaseID != nil {
		r.CaseID = *rec.TestCaseID
	}
	if rec.Status == model.StatusFail {
		r.Assertions.Result = model.StatusFail
	}
	if rec.URL != "" {
		r.Request = &model.RequestSnapshot{Method: rec.Method, URL: rec.URL, Headers: rec.RequestHeaders, Body: rec.RequestBody}
	}
	if rec.StatusCode != 0 || rec.ResponseBody != "" {
		r.Response = &model.ResponseSnapshot{StatusCode: rec.StatusCode, Headers: rec.ResponseHeaders, Body: rec.ResponseBody}
	}
	return r
}
