// Package store persists test cases, modules, suites and reports.
//
// It provides functionality for:
//   - The Reader and ReportWriter interfaces consumed by the runner
//   - A SQLite backed Repository (go-sqlite3), migrated on open
//
// Structured columns (headers, body, rules, assertions) are stored as JSON
// text. Relations are plain ids; deleting a module or case leaves suite
// items that reference it dangling, which the runner reports as missing.
package store
