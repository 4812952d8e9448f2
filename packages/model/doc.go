// Package model defines the test artifacts executed by apisuite.
//
// It provides:
//   - TestCase, TestModule and TestSuite definitions
//   - SuiteItem, a tagged reference to a case, module or child suite
//   - Result, the transient record of one case execution
//   - Report and Record, the persisted aggregate of a suite run
//
// Relations between entities are id-based; nothing here embeds object graphs.
package model
