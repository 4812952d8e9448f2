package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRun() *Run {
	results := []*model.Result{
		{
			CaseID:     1,
			Name:       "ping",
			Status:     model.StatusSuccess,
			StatusCode: 200,
			Duration:   12 * time.Millisecond,
			Request:    &model.RequestSnapshot{Method: "GET", URL: "http://api.test/ping"},
			Assertions: model.AssertionOutcome{Result: model.StatusSuccess},
			Extractions: []model.Extraction{
				{Name: "token", Path: "$.token", Value: "abc", Found: true},
				{Name: "missing", Path: "$.nope"},
			},
		},
		{
			CaseID:     2,
			Name:       "create",
			Status:     model.StatusFail,
			StatusCode: 500,
			Duration:   30 * time.Millisecond,
			Assertions: model.AssertionOutcome{
				Result: model.StatusFail,
				Details: []model.AssertionDetail{
					{Check: "status_code", Comparator: "equals", Expect: "201", Actual: "500", Result: model.StatusFail},
					{Check: "$.ok", Comparator: "equals", Expect: "true", Actual: "true", Result: model.StatusSuccess},
				},
			},
		},
		{
			CaseID: 3,
			Name:   "broken",
			Status: model.StatusError,
			Phase:  "dispatching",
			Error:  "request failed: connection refused",
		},
	}
	return NewRun("smoke", 7, results)
}

func TestNew(t *testing.T) {
	for _, format := range Formats {
		f, err := New(format, &bytes.Buffer{}, false, true)
		require.NoError(t, err, format)
		assert.NotNil(t, f)
	}

	_, err := New("html", &bytes.Buffer{}, false, true)
	assert.Error(t, err)
}

func TestConsoleFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))
	f.FormatRun(sampleRun())
	out := buf.String()

	assert.Contains(t, out, "Running: smoke")
	assert.Contains(t, out, "✓ ping (200, 12ms)")
	assert.Contains(t, out, "GET http://api.test/ping")
	assert.Contains(t, out, "token = abc")
	assert.Contains(t, out, "missing (no match)")
	assert.Contains(t, out, "✗ create (500, 30ms)")
	assert.Contains(t, out, "Expected: 201")
	assert.Contains(t, out, "Actual:   500")
	assert.NotContains(t, out, "$.ok equals")
	assert.Contains(t, out, "! broken (request failed: connection refused)")
	assert.Contains(t, out, "1 passed, 1 failed, 1 errors, 3 total")
	assert.Contains(t, out, "Report: #7")
}

func TestConsoleFormatter_Quiet(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatRun(sampleRun())
	assert.NotContains(t, buf.String(), "token = abc")

	buf.Reset()
	f.FormatError(errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	f.FormatRun(sampleRun())
	require.NoError(t, f.Flush(time.Second))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, JSONSummary{Total: 3, Passed: 1, Failed: 1, Errors: 1}, out.Summary)
	require.Len(t, out.Runs, 1)
	assert.Equal(t, int64(7), out.Runs[0].ReportID)
	require.Len(t, out.Runs[0].Results, 3)
	assert.Equal(t, "dispatching", out.Runs[0].Results[2].Phase)
	assert.Equal(t, float64(1000), out.Duration)
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))
	f.FormatRun(sampleRun())
	require.NoError(t, f.Flush(time.Second))

	var out JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 3, out.Tests)
	assert.Equal(t, 1, out.Failures)
	assert.Equal(t, 1, out.Errors)
	require.Len(t, out.TestSuites, 1)

	assert.Equal(t, []JUnitProperty{{Name: "report_id", Value: "7"}}, out.TestSuites[0].Properties)

	cases := out.TestSuites[0].TestCases
	require.Len(t, cases, 3)
	assert.Nil(t, cases[0].Failure)
	assert.Equal(t, "GET http://api.test/ping -> 200", cases[0].SystemOut)
	require.NotNil(t, cases[1].Failure)
	assert.Contains(t, cases[1].Failure.Content, "status_code equals: expected 201, got 500")
	require.NotNil(t, cases[2].Error)
	assert.Equal(t, "request failed: connection refused", cases[2].Error.Message)
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))
	f.FormatRun(sampleRun())
	require.NoError(t, f.Flush(time.Second))
	out := buf.String()

	assert.Contains(t, out, "TAP version 13\n1..3\n")
	assert.Contains(t, out, "ok 1 - ping\n")
	assert.Contains(t, out, "not ok 2 - create\n")
	assert.Contains(t, out, `- "status_code equals: expected 201, got 500"`)
	assert.Contains(t, out, "not ok 3 - broken\n")
	assert.Contains(t, out, "phase: dispatching")
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"a: \"b\""`, escapeYAML(`a: "b"`))
	assert.Equal(t, `"x\ny"`, escapeYAML("x\ny"))
}

func TestResultFromRecord(t *testing.T) {
	id := int64(4)
	r := ResultFromRecord(&model.Record{
		TestCaseID: &id,
		CaseName:   "create",
		Status:     model.StatusFail,
		Duration:   0.25,
		URL:        "http://api.test/items",
		Method:     "POST",
		StatusCode: 400,
	})
	assert.Equal(t, int64(4), r.CaseID)
	assert.Equal(t, 250*time.Millisecond, r.Duration)
	assert.Equal(t, model.StatusFail, r.Assertions.Result)
	require.NotNil(t, r.Request)
	assert.Equal(t, "POST", r.Request.Method)
	require.NotNil(t, r.Response)
	assert.Equal(t, 400, r.Response.StatusCode)
}

func TestExportXLSX(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rep := &model.Report{
		ID:        9,
		SuiteName: "smoke",
		StartTime: started,
		Duration:  1.5,
		Total:     2,
		Pass:      1,
		Fail:      1,
		Status:    model.ReportFailed,
		Latency:   &model.LatencySummary{P50: 10, P95: 20, P99: 20, Max: 20},
		Records: []model.Record{
			{
				CaseName:       "ping",
				Status:         model.StatusSuccess,
				StartTime:      started,
				Duration:       0.01,
				URL:            "http://api.test/ping",
				Method:         "GET",
				StatusCode:     200,
				RequestHeaders: map[string]string{"Accept": "application/json"},
			},
			{
				CaseName:    "create",
				Status:      model.StatusFail,
				StartTime:   started,
				Duration:    0.02,
				URL:         "http://api.test/items",
				Method:      "POST",
				StatusCode:  500,
				RequestBody: map[string]any{"name": "x"},
				AssertionResults: []model.AssertionDetail{
					{Check: "status_code", Comparator: "equals", Expect: "201", Actual: "500", Result: model.StatusFail},
				},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, ExportXLSX(rep, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 4)
	assert.Equal(t, xlsxHeaders, rows[0])
	assert.Equal(t, "ping", rows[1][1])
	assert.Equal(t, "fail", rows[2][4])
	assert.Equal(t, "status_code equals: expected 201, got 500", rows[2][8])
	assert.Equal(t, `curl -X POST 'http://api.test/items' --data-raw '{"name":"x"}'`, rows[2][11])

	summary, err := f.GetCellValue(xlsxSheet, "A5")
	require.NoError(t, err)
	assert.Equal(t, "Summary", summary)
	total, err := f.GetCellValue(xlsxSheet, "A10")
	require.NoError(t, err)
	assert.Equal(t, "Total: 2", total)
}
