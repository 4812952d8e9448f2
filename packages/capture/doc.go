// Package capture extracts values from JSON response bodies into the run's
// variable store.
//
// Paths may be written JSONPath style ($.data.token, $.items[0].id,
// $['odd key']) or as plain gjson paths (data.token). The first match wins.
//
// Extracted values can be referenced by later requests via {{name}}.
package capture
