// Package runner executes apisuite test cases, modules and suites.
//
// It provides functionality for:
//   - Running a single case through interpolation, setup hook, HTTP
//     dispatch, teardown hook, extraction and assertions
//   - Walking a suite tree in item order, sharing one variable store and
//     one cookie-carrying HTTP client across the whole run
//   - Opening, filling and finalizing a report for top-level suite runs
//   - Debug runs that capture the diagnostic log and persist nothing
//
// Cases within a run always execute sequentially, since later cases may
// read variables extracted by earlier ones. Independent runs share no state
// and may run in parallel.
package runner
