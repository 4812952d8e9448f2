package metrics

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// PrometheusExporter writes metrics in the Prometheus text exposition
// format. Samples carry no timestamps so the output can be dropped into a
// node_exporter textfile directory.
type PrometheusExporter struct {
	writer io.Writer
	prefix string
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithPrometheusPrefix sets the metric name prefix
func WithPrometheusPrefix(prefix string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.prefix = prefix
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter
func NewPrometheusExporter(w io.Writer, opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{writer: w, prefix: "apisuite"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Export writes the aggregate. Per-case samples come from agg.ByCase.
func (p *PrometheusExporter) Export(agg *AggregateMetrics, _ []*CaseMetrics) error {
	w := bufio.NewWriter(p.writer)
	base := fmt.Sprintf(`suite="%s",report="%d"`, sanitizeLabel(agg.Suite), agg.ReportID)

	family := func(name, typ, help string) string {
		full := p.prefix + "_" + name
		fmt.Fprintf(w, "# HELP %s %s\n", full, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", full, typ)
		return full
	}

	name := family("cases_total", "gauge", "Cases executed by outcome")
	fmt.Fprintf(w, "%s{%s,status=\"success\"} %d\n", name, base, agg.PassCount)
	fmt.Fprintf(w, "%s{%s,status=\"fail\"} %d\n", name, base, agg.FailCount)
	fmt.Fprintf(w, "%s{%s,status=\"error\"} %d\n", name, base, agg.ErrorCount)
	fmt.Fprintln(w)

	name = family("run_success", "gauge", "1 if every case of the run passed")
	success := 0
	if agg.TotalCases > 0 && agg.FailCount == 0 && agg.ErrorCount == 0 {
		success = 1
	}
	fmt.Fprintf(w, "%s{%s} %d\n", name, base, success)
	fmt.Fprintln(w)

	name = family("run_duration_seconds", "gauge", "Wall-clock duration of the run")
	fmt.Fprintf(w, "%s{%s} %s\n", name, base, formatFloat(agg.DurationSeconds))
	fmt.Fprintln(w)

	name = family("case_duration_ms", "gauge", "Case duration quantiles in milliseconds")
	for _, q := range []struct {
		label string
		value float64
	}{
		{"min", agg.MinDurationMs},
		{"0.5", agg.Latency.P50},
		{"0.95", agg.Latency.P95},
		{"0.99", agg.Latency.P99},
		{"max", agg.MaxDurationMs},
		{"mean", agg.Latency.Mean},
	} {
		fmt.Fprintf(w, "%s{%s,quantile=\"%s\"} %s\n", name, base, q.label, formatFloat(q.value))
	}
	fmt.Fprintln(w)

	if len(agg.StatusCodes) > 0 {
		name = family("responses_by_status", "gauge", "Responses by HTTP status code")
		codes := make([]int, 0, len(agg.StatusCodes))
		for code := range agg.StatusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Fprintf(w, "%s{%s,code=\"%d\"} %d\n", name, base, code, agg.StatusCodes[code])
		}
		fmt.Fprintln(w)
	}

	if len(agg.ByCase) > 0 {
		names := make([]string, 0, len(agg.ByCase))
		for n := range agg.ByCase {
			names = append(names, n)
		}
		sort.Strings(names)

		name = family("case_failures", "gauge", "Failed or errored executions per case")
		for _, n := range names {
			ca := agg.ByCase[n]
			fmt.Fprintf(w, "%s{%s,case=\"%s\"} %d\n", name, base, sanitizeLabel(n), ca.FailCount+ca.ErrorCount)
		}
		fmt.Fprintln(w)

		name = family("case_duration_avg_ms", "gauge", "Average duration per case in milliseconds")
		for _, n := range names {
			fmt.Fprintf(w, "%s{%s,case=\"%s\"} %s\n", name, base, sanitizeLabel(n), formatFloat(agg.ByCase[n].AvgDurationMs))
		}
	}

	return w.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// sanitizeLabel makes a string safe for use as a Prometheus label value
func sanitizeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
