// Package assertions evaluates response assertions.
//
// A check selects the actual value:
//   - status_code: the HTTP status code
//   - json: the whole decoded body
//   - json.<path>: a sub-value, JSONPath or gjson syntax
//
// Supported comparators: contains, not_contains, equals (==, =), json_equals,
// not_equals (!=), >, >=, <, <=, matches, exists and schema.
//
// Every assertion in a batch is evaluated; expect and actual are recorded as
// strings.
package assertions
