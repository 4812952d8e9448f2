// Package output renders run results and stored reports.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//   - XLSX: Spreadsheet export of a stored report
//
// Each formatter implements the Formatter interface and can optionally
// implement Flushable for formats that accumulate runs before output.
package output
