// Package http provides the HTTP transport used to execute test cases.
//
// It wraps the standard library's http package with additional features:
//   - Configurable timeouts, redirects, TLS verification and proxy
//   - A per-session cookie jar
//   - Optional request rate limiting
//   - Body encoding from case definitions (JSON or form)
//   - curl rendering for debug output
package http
