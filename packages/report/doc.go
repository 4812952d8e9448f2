// Package report aggregates case results into persisted suite reports.
//
// A report is opened in the running state, receives one record per executed
// case and is finalized with counts, status, duration and a latency summary.
// A report succeeds only when it holds no failures and no errors.
package report
