// Package config handles configuration loading and management for apisuite.
//
// It provides functionality for:
//   - Loading configuration from .apisuite.config.json or .apisuiterc files
//   - Default configuration values
//   - Environment base URL resolution (dev, uat, prod or custom)
package config
