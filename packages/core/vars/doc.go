// Package vars holds run-scoped variables and the {{name}} interpolation engine.
//
// It provides functionality for:
//   - A mutex-guarded Store owned by one run
//   - Interpolating strings, maps and slices against a Store
//   - Seeding a Store from .env files and name=value assignments
//
// Interpolation never fails: unknown placeholders are left in place.
package vars
