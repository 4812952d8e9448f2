// Package metrics turns a stored report into metrics for monitoring
// systems: Prometheus text exposition and a JSON document.
package metrics

import (
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/abdul-hamid-achik/apisuite/packages/report"
)

// CaseMetrics is one executed case of a report.
type CaseMetrics struct {
	CaseName       string       `json:"case_name"`
	RequestMethod  string       `json:"request_method"`
	RequestURL     string       `json:"request_url"`
	StatusCode     int          `json:"status_code"`
	DurationMs     float64      `json:"duration_ms"`
	Status         model.Status `json:"status"`
	AssertionCount int          `json:"assertion_count"`
	FailedCount    int          `json:"failed_count"`
	Timestamp      time.Time    `json:"timestamp"`
}

// AggregateMetrics is the rollup of a report's records.
type AggregateMetrics struct {
	Suite           string                    `json:"suite"`
	ReportID        int64                     `json:"report_id"`
	Status          model.ReportStatus        `json:"status"`
	TotalCases      int64                     `json:"total_cases"`
	PassCount       int64                     `json:"pass_count"`
	FailCount       int64                     `json:"fail_count"`
	ErrorCount      int64                     `json:"error_count"`
	DurationSeconds float64                   `json:"duration_seconds"`
	MinDurationMs   float64                   `json:"min_duration_ms"`
	MaxDurationMs   float64                   `json:"max_duration_ms"`
	Latency         model.LatencySummary      `json:"latency"`
	StatusCodes     map[int]int64             `json:"status_codes"`
	ByCase          map[string]*CaseAggregate `json:"by_case"`
}

// CaseAggregate rolls up the records of one case name. A case that a suite
// reaches twice contributes two executions.
type CaseAggregate struct {
	Name          string  `json:"name"`
	Executions    int64   `json:"executions"`
	PassCount     int64   `json:"pass_count"`
	FailCount     int64   `json:"fail_count"`
	ErrorCount    int64   `json:"error_count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	MinDurationMs float64 `json:"min_duration_ms"`
	MaxDurationMs float64 `json:"max_duration_ms"`
}

// Exporter writes collected metrics somewhere.
type Exporter interface {
	Export(agg *AggregateMetrics, cases []*CaseMetrics) error
}

// Collector accumulates case metrics into an aggregate.
type Collector struct {
	cases     []*CaseMetrics
	aggregate *AggregateMetrics
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		aggregate: &AggregateMetrics{
			StatusCodes: make(map[int]int64),
			ByCase:      make(map[string]*CaseAggregate),
		},
	}
}

// FromReport collects every record of rep. The stored latency summary is
// used when present; otherwise it is computed from the records.
func FromReport(rep *model.Report) *Collector {
	c := NewCollector()
	c.aggregate.Suite = rep.SuiteName
	c.aggregate.ReportID = rep.ID
	c.aggregate.Status = rep.Status
	c.aggregate.DurationSeconds = rep.Duration

	durations := make([]time.Duration, 0, len(rep.Records))
	for i := range rep.Records {
		m := caseMetrics(&rep.Records[i])
		c.Record(m)
		durations = append(durations, time.Duration(rep.Records[i].Duration*float64(time.Second)))
	}
	if rep.Latency != nil {
		c.aggregate.Latency = *rep.Latency
	} else {
		c.aggregate.Latency = report.Latency(durations)
	}
	return c
}

func caseMetrics(rec *model.Record) *CaseMetrics {
	m := &CaseMetrics{
		CaseName:       rec.CaseName,
		RequestMethod:  rec.Method,
		RequestURL:     rec.URL,
		StatusCode:     rec.StatusCode,
		DurationMs:     rec.Duration * 1000,
		Status:         rec.Status,
		AssertionCount: len(rec.AssertionResults),
		Timestamp:      rec.StartTime,
	}
	for _, d := range rec.AssertionResults {
		if d.Result != model.StatusSuccess {
			m.FailedCount++
		}
	}
	return m
}

// Record adds one case execution.
func (c *Collector) Record(m *CaseMetrics) {
	c.cases = append(c.cases, m)
	c.updateAggregate(m)
}

func (c *Collector) updateAggregate(m *CaseMetrics) {
	a := c.aggregate
	a.TotalCases++
	switch m.Status {
	case model.StatusSuccess:
		a.PassCount++
	case model.StatusFail:
		a.FailCount++
	default:
		a.ErrorCount++
	}

	if a.TotalCases == 1 {
		a.MinDurationMs = m.DurationMs
		a.MaxDurationMs = m.DurationMs
	} else {
		a.MinDurationMs = min(a.MinDurationMs, m.DurationMs)
		a.MaxDurationMs = max(a.MaxDurationMs, m.DurationMs)
	}

	// errored cases that never got a response have no status code
	if m.StatusCode != 0 {
		a.StatusCodes[m.StatusCode]++
	}

	ca, ok := a.ByCase[m.CaseName]
	if !ok {
		ca = &CaseAggregate{
			Name:          m.CaseName,
			MinDurationMs: m.DurationMs,
			MaxDurationMs: m.DurationMs,
		}
		a.ByCase[m.CaseName] = ca
	}
	ca.Executions++
	switch m.Status {
	case model.StatusSuccess:
		ca.PassCount++
	case model.StatusFail:
		ca.FailCount++
	default:
		ca.ErrorCount++
	}
	ca.MinDurationMs = min(ca.MinDurationMs, m.DurationMs)
	ca.MaxDurationMs = max(ca.MaxDurationMs, m.DurationMs)
	ca.AvgDurationMs = (ca.AvgDurationMs*float64(ca.Executions-1) + m.DurationMs) / float64(ca.Executions)
}

// Aggregate returns the aggregated metrics
func (c *Collector) Aggregate() *AggregateMetrics {
	return c.aggregate
}

// Cases returns the recorded case metrics in record order.
func (c *Collector) Cases() []*CaseMetrics {
	return c.cases
}

// Export hands the collected metrics to every exporter, stopping at the
// first error.
func (c *Collector) Export(exporters ...Exporter) error {
	for _, exp := range exporters {
		if err := exp.Export(c.aggregate, c.cases); err != nil {
			return err
		}
	}
	return nil
}
