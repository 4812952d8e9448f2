package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/model"
)

// TAPFormatter formats test results in TAP (Test Anything Protocol) format
type TAPFormatter struct {
	writer    io.Writer
	testCount int
	results   []tapResult
}

type tapResult struct {
	number     int
	name       string
	status     model.Status
	error      string
	phase      string
	assertions []string
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatRun(run *Run) {
	for _, r := range run.Results {
		f.testCount++
		f.results = append(f.results, tapResult{
			number:     f.testCount,
			name:       r.Name,
			status:     r.Status,
			error:      r.Error,
			phase:      r.Phase,
			assertions: failedAssertions(r),
		})
	}
}

func (f *TAPFormatter) FormatError(err error) {
	// Errors are included in individual test results
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", f.testCount)

	for _, r := range f.results {
		switch r.status {
		case model.StatusSuccess:
			fmt.Fprintf(f.writer, "ok %d - %s\n", r.number, r.name)
		case model.StatusFail:
			fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, r.name)
			if len(r.assertions) > 0 {
				fmt.Fprintf(f.writer, "  ---\n")
				fmt.Fprintf(f.writer, "  failures:\n")
				for _, a := range r.assertions {
					fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(a))
				}
				fmt.Fprintf(f.writer, "  ...\n")
			}
		default:
			fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, r.name)
			fmt.Fprintf(f.writer, "  ---\n")
			fmt.Fprintf(f.writer, "  message: %s\n", escapeYAML(r.error))
			fmt.Fprintf(f.writer, "  severity: error\n")
			if r.phase != "" {
				fmt.Fprintf(f.writer, "  phase: %s\n", r.phase)
			}
			fmt.Fprintf(f.writer, "  ...\n")
		}
	}

	fmt.Fprintf(f.writer, "# time %dms\n", totalDuration.Milliseconds())
	return nil
}

// escapeYAML quotes s when it holds YAML special characters.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		return "\"" + s + "\""
	}
	return s
}
