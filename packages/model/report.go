package model

import "time"

// ReportStatus is the lifecycle state of a suite report.
type ReportStatus string

const (
	ReportRunning ReportStatus = "running"
	ReportSuccess ReportStatus = "success"
	ReportFailed  ReportStatus = "failed"
)

// LatencySummary holds percentile case durations of a run, in milliseconds.
type LatencySummary struct {
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Report is the persisted aggregate of one top-level suite run.
// SuiteName is copied so the report stays readable after the suite is deleted.
type Report struct {
	ID        int64           `json:"id"`
	SuiteID   *int64          `json:"suite_id,omitempty"`
	SuiteName string          `json:"suite_name"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Duration  float64         `json:"duration"` // seconds
	Total     int             `json:"total_cases"`
	Pass      int             `json:"pass_count"`
	Fail      int             `json:"fail_count"`
	Error     int             `json:"error_count"`
	Status    ReportStatus    `json:"status"`
	Latency   *LatencySummary `json:"latency,omitempty"`
	Records   []Record        `json:"records,omitempty"`
}

// ReportPatch lists the report fields to change; nil fields are left as is.
type ReportPatch struct {
	EndTime  *time.Time
	Duration *float64
	Total    *int
	Pass     *int
	Fail     *int
	Error    *int
	Status   *ReportStatus
	Latency  *LatencySummary
}

// Record is the durable copy of one Result, owned by a Report.
type Record struct {
	ID               int64             `json:"id"`
	ReportID         int64             `json:"report_id"`
	TestCaseID       *int64            `json:"test_case_id,omitempty"`
	CaseName         string            `json:"case_name"`
	StartTime        time.Time         `json:"start_time"`
	Duration         float64           `json:"duration"` // seconds
	Status           Status            `json:"status"`
	URL              string            `json:"url,omitempty"`
	Method           string            `json:"method,omitempty"`
	StatusCode       int               `json:"status_code,omitempty"`
	RequestHeaders   map[string]string `json:"request_headers,omitempty"`
	RequestBody      any               `json:"request_body,omitempty"`
	ResponseHeaders  map[string]string `json:"response_headers,omitempty"`
	ResponseBody     string            `json:"response_body,omitempty"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	AssertionResults []AssertionDetail `json:"assertion_results,omitempty"`
}

// RecordFromResult copies a Result into a Record for the given report.
func RecordFromResult(reportID int64, r *Result) Record {
	rec := Record{
		ReportID:         reportID,
		CaseName:         r.Name,
		StartTime:        r.StartTime,
		Duration:         r.Duration.Seconds(),
		Status:           r.Status,
		StatusCode:       r.StatusCode,
		ErrorMessage:     r.Error,
		AssertionResults: r.Assertions.Details,
	}
	if r.CaseID != 0 {
		id := r.CaseID
		rec.TestCaseID = &id
	}
	if r.Request != nil {
		rec.URL = r.Request.URL
		rec.Method = r.Request.Method
		rec.RequestHeaders = r.Request.Headers
		rec.RequestBody = r.Request.Body
	}
	if r.Response != nil {
		rec.ResponseHeaders = r.Response.Headers
		rec.ResponseBody = r.Response.Body
	}
	return rec
}
