package report

import (
	"context"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/logging"
	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/abdul-hamid-achik/apisuite/packages/store"
)

// Summary is the rollup of a list of results.
type Summary struct {
	Total    int                  `json:"total"`
	Pass     int                  `json:"pass"`
	Fail     int                  `json:"fail"`
	Error    int                  `json:"error"`
	Status   model.ReportStatus   `json:"status"`
	Duration time.Duration        `json:"duration"`
	Latency  model.LatencySummary `json:"latency"`
}

// Passed reports whether the run had neither failures nor errors.
func (s Summary) Passed() bool {
	return s.Status == model.ReportSuccess
}

// Summarize counts outcomes. Duration is the sum of case durations.
func Summarize(results []*model.Result) Summary {
	s := Summary{Total: len(results)}
	durations := make([]time.Duration, 0, len(results))
	for _, r := range results {
		switch r.Status {
		case model.StatusSuccess:
			s.Pass++
		case model.StatusFail:
			s.Fail++
		default:
			s.Error++
		}
		s.Duration += r.Duration
		durations = append(durations, r.Duration)
	}
	s.Status = model.ReportSuccess
	if s.Fail > 0 || s.Error > 0 {
		s.Status = model.ReportFailed
	}
	s.Latency = Latency(durations)
	return s
}

// Aggregator opens, fills and closes Reports. Write failures are logged and
// swallowed so reporting never interrupts a run.
type Aggregator struct {
	repo store.ReportWriter
	log  logging.Logger
	now  func() time.Time
}

func NewAggregator(repo store.ReportWriter, log logging.Logger) *Aggregator {
	return &Aggregator{repo: repo, log: logging.OrDiscard(log), now: time.Now}
}

// Open creates a running report for suite and returns its id.
func (a *Aggregator) Open(ctx context.Context, suite *model.TestSuite) (int64, error) {
	id := suite.ID
	r := &model.Report{
		SuiteID:   &id,
		SuiteName: suite.Name,
		StartTime: a.now(),
		Status:    model.ReportRunning,
	}
	reportID, err := a.repo.CreateReport(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("opening report for suite %d: %w", suite.ID, err)
	}
	return reportID, nil
}

// Record persists one result. Failures are logged, never returned.
func (a *Aggregator) Record(ctx context.Context, reportID int64, result *model.Result) {
	if reportID == 0 {
		return
	}
	rec := model.RecordFromResult(reportID, result)
	if _, err := a.repo.CreateRecord(ctx, &rec); err != nil {
		a.log.Printf("report %d: failed to record %q: %v", reportID, result.Name, err)
	}
}

// Finalize computes counts from results and closes the report. The report
// duration is the wall-clock time since the report's stored start; when
// the report cannot be read back, the sum of case durations is used.
func (a *Aggregator) Finalize(ctx context.Context, reportID int64, results []*model.Result) Summary {
	summary := Summarize(results)
	if reportID == 0 {
		return summary
	}

	end := a.now()
	if stored, err := a.repo.GetReport(ctx, reportID); err == nil {
		summary.Duration = end.Sub(stored.StartTime)
	} else {
		a.log.Printf("report %d: cannot read start time, using case durations: %v", reportID, err)
	}

	seconds := summary.Duration.Seconds()
	latency := summary.Latency
	patch := model.ReportPatch{
		EndTime:  &end,
		Duration: &seconds,
		Total:    &summary.Total,
		Pass:     &summary.Pass,
		Fail:     &summary.Fail,
		Error:    &summary.Error,
		Status:   &summary.Status,
		Latency:  &latency,
	}
	if err := a.repo.UpdateReport(ctx, reportID, patch); err != nil {
		a.log.Printf("report %d: failed to finalize: %v", reportID, err)
	}
	return summary
}
