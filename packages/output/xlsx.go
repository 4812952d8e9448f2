package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/core/vars"
	"github.com/abdul-hamid-achik/apisuite/packages/http"
	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxSheet         = "Results"
	xlsxColumnWidth   = 24
	xlsxFailColor     = "#FFC7CE"
	xlsxErrorColor    = "#FFEB9C"
	xlsxHeaderColor   = "#D9E1F2"
	xlsxSlowThreshold = 2 * time.Second
)

var xlsxHeaders = []string{
	"#", "Case", "Method", "URL", "Status", "Status Code",
	"Duration (ms)", "Started", "Failed Assertions", "Error", "Response Body", "Curl",
}

// ExportXLSX writes a stored report and its records to a spreadsheet at
// path. Failed rows are filled red, errored rows yellow, and a summary block
// follows the records.
func ExportXLSX(rep *model.Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	last, err := excelize.ColumnNumberToName(len(xlsxHeaders))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(xlsxSheet, "A", last, xlsxColumnWidth); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{xlsxHeaderColor}},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	failStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{xlsxFailColor}},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	errorStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{xlsxErrorColor}},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(xlsxSheet, cell, h)
	}
	f.SetCellStyle(xlsxSheet, "A1", last+"1", headerStyle)

	for i := range rep.Records {
		row := i + 2
		rec := &rep.Records[i]
		writeRecordRow(f, row, i+1, rec)

		from, _ := excelize.CoordinatesToCellName(1, row)
		to, _ := excelize.CoordinatesToCellName(len(xlsxHeaders), row)
		switch rec.Status {
		case model.StatusFail:
			f.SetCellStyle(xlsxSheet, from, to, failStyle)
		case model.StatusError:
			f.SetCellStyle(xlsxSheet, from, to, errorStyle)
		default:
			if time.Duration(rec.Duration*float64(time.Second)) > xlsxSlowThreshold {
				f.SetCellStyle(xlsxSheet, from, to, errorStyle)
			}
		}
	}

	writeReportSummary(f, len(rep.Records)+3, rep)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func writeRecordRow(f *excelize.File, row, number int, rec *model.Record) {
	failed := failedAssertions(ResultFromRecord(rec))
	cells := []any{
		number,
		rec.CaseName,
		rec.Method,
		rec.URL,
		string(rec.Status),
		rec.StatusCode,
		rec.Duration * 1000,
		rec.StartTime.Format(time.RFC3339),
		strings.Join(failed, "\n"),
		rec.ErrorMessage,
		truncate(rec.ResponseBody, 32000),
		recordCurl(rec),
	}
	for i, v := range cells {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(xlsxSheet, cell, v)
	}
}

func writeReportSummary(f *excelize.File, startRow int, rep *model.Report) {
	lines := []string{
		"Summary",
		fmt.Sprintf("Suite: %s", rep.SuiteName),
		fmt.Sprintf("Report: #%d (%s)", rep.ID, rep.Status),
		fmt.Sprintf("Started: %s", rep.StartTime.Format(time.RFC3339)),
		fmt.Sprintf("Duration: %.3fs", rep.Duration),
		fmt.Sprintf("Total: %d", rep.Total),
		fmt.Sprintf("Passed: %d", rep.Pass),
		fmt.Sprintf("Failed: %d", rep.Fail),
		fmt.Sprintf("Errors: %d", rep.Error),
	}
	if l := rep.Latency; l != nil {
		lines = append(lines, fmt.Sprintf("Latency: p50 %.0fms, p95 %.0fms, p99 %.0fms, max %.0fms", l.P50, l.P95, l.P99, l.Max))
	}
	for i, line := range lines {
		f.SetCellValue(xlsxSheet, fmt.Sprintf("A%d", startRow+i), line)
	}
}

// recordCurl rebuilds the curl command for a stored request. Records that
// never reached dispatch have no URL and yield an empty cell.
func recordCurl(rec *model.Record) string {
	if rec.URL == "" {
		return ""
	}
	req := http.NewRequest(rec.Method, rec.URL)
	for k, v := range rec.RequestHeaders {
		req.SetHeader(k, v)
	}
	if rec.RequestBody != nil {
		req.SetBody([]byte(vars.Stringify(rec.RequestBody)))
	}
	return http.Curl(req)
}
