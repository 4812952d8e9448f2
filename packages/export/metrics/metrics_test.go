package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *model.Report {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.Report{
		ID:        7,
		SuiteName: `smoke "eu"`,
		StartTime: start,
		Duration:  0.9,
		Status:    model.ReportFailed,
		Records: []model.Record{
			{CaseName: "login", Method: "POST", URL: "http://api.test/login", StatusCode: 200, Duration: 0.1, Status: model.StatusSuccess, StartTime: start,
				AssertionResults: []model.AssertionDetail{{Check: "status_code", Result: model.StatusSuccess}}},
			{CaseName: "profile", Method: "GET", URL: "http://api.test/me", StatusCode: 500, Duration: 0.3, Status: model.StatusFail, StartTime: start,
				AssertionResults: []model.AssertionDetail{
					{Check: "status_code", Result: model.StatusFail},
					{Check: "json.id", Result: model.StatusSuccess},
				}},
			{CaseName: "login", Method: "POST", URL: "http://api.test/login", StatusCode: 200, Duration: 0.2, Status: model.StatusSuccess, StartTime: start},
			{CaseName: "upload", Method: "PUT", URL: "http://api.test/files", Duration: 0.05, Status: model.StatusError, StartTime: start},
		},
	}
}

func TestFromReport(t *testing.T) {
	c := FromReport(sampleReport())
	agg := c.Aggregate()

	assert.Equal(t, int64(4), agg.TotalCases)
	assert.Equal(t, int64(2), agg.PassCount)
	assert.Equal(t, int64(1), agg.FailCount)
	assert.Equal(t, int64(1), agg.ErrorCount)
	assert.InDelta(t, 50, agg.MinDurationMs, 0.001)
	assert.InDelta(t, 300, agg.MaxDurationMs, 0.001)
	assert.Equal(t, map[int]int64{200: 2, 500: 1}, agg.StatusCodes)
	assert.Greater(t, agg.Latency.P99, 0.0)

	login := agg.ByCase["login"]
	require.NotNil(t, login)
	assert.Equal(t, int64(2), login.Executions)
	assert.InDelta(t, 150, login.AvgDurationMs, 0.001)

	cases := c.Cases()
	require.Len(t, cases, 4)
	assert.Equal(t, 2, cases[1].AssertionCount)
	assert.Equal(t, 1, cases[1].FailedCount)
}

func TestFromReport_StoredLatency(t *testing.T) {
	rep := sampleReport()
	rep.Latency = &model.LatencySummary{P50: 1, P95: 2, P99: 3, Max: 4, Mean: 1.5}
	assert.Equal(t, *rep.Latency, FromReport(rep).Aggregate().Latency)
}

func TestPrometheusExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FromReport(sampleReport()).Export(NewPrometheusExporter(&buf)))
	out := buf.String()

	base := `suite="smoke \"eu\"",report="7"`
	assert.Contains(t, out, "# TYPE apisuite_cases_total gauge\n")
	assert.Contains(t, out, `apisuite_cases_total{`+base+`,status="success"} 2`)
	assert.Contains(t, out, `apisuite_cases_total{`+base+`,status="error"} 1`)
	assert.Contains(t, out, `apisuite_run_success{`+base+`} 0`)
	assert.Contains(t, out, `apisuite_run_duration_seconds{`+base+`} 0.9`)
	assert.Contains(t, out, `apisuite_responses_by_status{`+base+`,code="500"} 1`)
	assert.Contains(t, out, `apisuite_case_failures{`+base+`,case="profile"} 1`)
	assert.Contains(t, out, `apisuite_case_duration_avg_ms{`+base+`,case="login"} 150`)
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(`code="200"`)), bytes.Index(buf.Bytes(), []byte(`code="500"`)))
}

func TestPrometheusExporter_Prefix(t *testing.T) {
	var buf bytes.Buffer
	rep := &model.Report{ID: 1, SuiteName: "empty", Status: model.ReportSuccess}
	require.NoError(t, FromReport(rep).Export(NewPrometheusExporter(&buf, WithPrometheusPrefix("api"))))
	assert.Contains(t, buf.String(), `api_run_success{suite="empty",report="1"} 0`)
	assert.NotContains(t, buf.String(), "api_responses_by_status")
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FromReport(sampleReport()).Export(NewJSONExporter(&buf, WithJSONPretty(false), WithJSONVersion("1.2.0"))))

	var got JSONMetricsOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "1.2.0", got.Metadata.Version)
	assert.Equal(t, int64(7), got.Summary.ReportID)
	assert.Len(t, got.Cases, 4)
	assert.Equal(t, "upload", got.Cases[3].CaseName)
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, `a\\b\"c\nd`, sanitizeLabel("a\\b\"c\nd"))
}
