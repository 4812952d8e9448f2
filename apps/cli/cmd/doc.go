// Package cmd implements the apisuite CLI commands using Cobra.
//
// Available commands:
//   - run: Execute a stored suite and record a report, optionally watching a fixture
//   - case run: Execute stored cases in one shared session
//   - debug case / debug suite: Execute without persistence and show the engine log
//   - import: Store modules, cases and suites from YAML fixtures
//   - validate: Check fixture files without importing them
//   - list: Display stored suites, modules or cases
//   - report list / show / export: Inspect reports, export them to .xlsx
//   - init: Create a config file and an example fixture
//   - version: Show apisuite version information
//
// Flags default from APISUITE_* environment variables and override the
// config file.
package cmd
