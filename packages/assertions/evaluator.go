package assertions

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/apisuite/packages/capture"
	"github.com/abdul-hamid-achik/apisuite/packages/core/vars"
	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/google/go-cmp/cmp"
	"github.com/xeipuuv/gojsonschema"
)

// Undefined is the rendering of an actual value whose path did not resolve.
const Undefined = "undefined"

// Comparator names.
const (
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpEquals      = "equals"
	OpJSONEquals  = "json_equals"
	OpNotEquals   = "not_equals"
	OpGreater     = ">"
	OpGreaterEq   = ">="
	OpLess        = "<"
	OpLessEq      = "<="
	OpMatches     = "matches"
	OpExists      = "exists"
	OpSchema      = "schema"
)

var aliases = map[string]string{
	"==": OpEquals,
	"=":  OpEquals,
	"!=": OpNotEquals,
}

// Canonical returns the comparator name for op, resolving aliases.
func Canonical(op string) string {
	op = strings.TrimSpace(op)
	if c, ok := aliases[op]; ok {
		return c
	}
	return op
}

type Evaluator struct {
	body       any
	statusCode int
}

// NewEvaluator binds an evaluator to one response. body is the decoded JSON
// value, or nil when the response was not JSON.
func NewEvaluator(body any, statusCode int) *Evaluator {
	return &Evaluator{body: body, statusCode: statusCode}
}

// Evaluate runs every assertion and returns the batch verdict. Assertions
// never short-circuit and a failure in one never affects another.
func Evaluate(body any, statusCode int, list []model.Assertion) model.AssertionOutcome {
	e := NewEvaluator(body, statusCode)
	outcome := model.AssertionOutcome{
		Result:  model.StatusSuccess,
		Details: make([]model.AssertionDetail, 0, len(list)),
	}
	for _, a := range list {
		detail := e.Evaluate(a)
		if detail.Result != model.StatusSuccess {
			outcome.Result = model.StatusFail
		}
		outcome.Details = append(outcome.Details, detail)
	}
	return outcome
}

// Evaluate checks a single assertion. A panic while evaluating is converted
// into a failed detail.
func (e *Evaluator) Evaluate(a model.Assertion) (detail model.AssertionDetail) {
	detail = model.AssertionDetail{
		Check:      a.Check,
		Comparator: a.Comparator,
		Actual:     Undefined,
		Result:     model.StatusFail,
	}

	defer func() {
		if r := recover(); r != nil {
			detail.Result = model.StatusFail
			detail.Message = fmt.Sprintf("assertion execution error: %v", r)
		}
	}()

	detail.Expect = Render(a.Expect)

	actual, found, err := e.resolve(a.Check)
	if err != nil {
		detail.Message = err.Error()
		return detail
	}
	if found {
		detail.Actual = Render(actual)
	}

	op := Canonical(a.Comparator)
	if !found && op != OpExists {
		detail.Message = fmt.Sprintf("path %q not found in response", strings.TrimPrefix(a.Check, "json."))
		return detail
	}

	passed, msg := e.compare(op, actual, found, a.Expect)
	if passed {
		detail.Result = model.StatusSuccess
	}
	detail.Message = msg
	return detail
}

func (e *Evaluator) resolve(check string) (any, bool, error) {
	switch {
	case check == "status_code":
		return e.statusCode, true, nil
	case check == "json":
		return e.body, true, nil
	case strings.HasPrefix(check, "json."):
		path := check[len("json."):]
		switch e.body.(type) {
		case map[string]any, []any:
		default:
			return nil, false, fmt.Errorf("response is not a valid JSON document for path %q", path)
		}
		return capture.Lookup(e.body, path)
	default:
		return nil, false, fmt.Errorf("invalid check: %q", check)
	}
}

func (e *Evaluator) compare(op string, actual any, found bool, expected any) (bool, string) {
	switch op {
	case OpContains:
		if Contains(actual, expected) {
			return true, ""
		}
		return false, "actual value does not contain expected value"
	case OpNotContains:
		if Contains(actual, expected) {
			return false, "actual value contains expected value"
		}
		return true, ""
	case OpEquals:
		if Equals(actual, expected) {
			return true, ""
		}
		return false, fmt.Sprintf("expected %s, got %s", Render(expected), Render(actual))
	case OpJSONEquals:
		return jsonEquals(actual, expected)
	case OpNotEquals:
		if !sameString(actual, expected) {
			return true, ""
		}
		return false, fmt.Sprintf("expected not to equal %s", Render(expected))
	case OpGreater, OpGreaterEq, OpLess, OpLessEq:
		return compareNumeric(actual, expected, op)
	case OpMatches:
		return matches(actual, expected)
	case OpExists:
		want := true
		if b, ok := expected.(bool); ok {
			want = b
		}
		if found == want {
			return true, ""
		}
		if want {
			return false, "expected to exist"
		}
		return false, "expected not to exist"
	case OpSchema:
		return schema(actual, expected)
	default:
		return false, fmt.Sprintf("unsupported comparator: %s", op)
	}
}

// Contains reports structural containment of expected in actual. Mappings
// require every expected key with a contained value; sequences require each
// expected element to be contained by some actual element; scalars compare
// by equality with a string fallback.
func Contains(actual, expected any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			av, ok := act[k]
			if !ok || !Contains(av, v) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return false
		}
		for _, ev := range exp {
			matched := false
			for _, av := range act {
				if Contains(av, ev) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
		return true
	default:
		if reflect.DeepEqual(normalize(actual), normalize(expected)) {
			return true
		}
		if isStructured(actual) {
			return false
		}
		return sameString(actual, expected)
	}
}

// Equals applies strict equality, then string forms, then numeric values.
func Equals(actual, expected any) bool {
	if reflect.DeepEqual(actual, expected) {
		return true
	}
	if sameString(actual, expected) {
		return true
	}
	a, aOk := toFloat64(actual)
	b, bOk := toFloat64(expected)
	return aOk && bOk && a == b
}

// sameString compares string forms. null only matches null, never "".
func sameString(actual, expected any) bool {
	if (actual == nil) != (expected == nil) {
		return false
	}
	return vars.Stringify(actual) == vars.Stringify(expected)
}

func jsonEquals(actual, expected any) (bool, string) {
	a, b := normalize(actual), normalize(expected)
	if cmp.Equal(a, b) {
		return true, ""
	}
	return false, "actual JSON does not strictly equal expected JSON (-expected +actual):\n" + cmp.Diff(b, a)
}

func compareNumeric(actual, expected any, op string) (bool, string) {
	a, aOk := toFloat64(actual)
	b, bOk := toFloat64(expected)
	if !aOk || !bOk {
		return false, fmt.Sprintf("cannot compare non-numeric values: %s %s %s", Render(actual), op, Render(expected))
	}

	var passed bool
	switch op {
	case OpGreater:
		passed = a > b
	case OpGreaterEq:
		passed = a >= b
	case OpLess:
		passed = a < b
	case OpLessEq:
		passed = a <= b
	}
	if passed {
		return true, ""
	}
	return false, fmt.Sprintf("expected %s %s %s", Render(actual), op, Render(expected))
}

func matches(actual, expected any) (bool, string) {
	pattern := vars.Stringify(expected)
	pattern = strings.TrimPrefix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}
	if re.MatchString(vars.Stringify(actual)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected %s to match /%s/", Render(actual), pattern)
}

func schema(actual, expected any) (bool, string) {
	var schemaLoader gojsonschema.JSONLoader
	if s, ok := expected.(string); ok {
		schemaLoader = gojsonschema.NewStringLoader(s)
	} else {
		schemaLoader = gojsonschema.NewGoLoader(expected)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(normalize(actual)))
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err)
	}
	if result.Valid() {
		return true, ""
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return false, fmt.Sprintf("schema validation failed: %s", strings.Join(errs, "; "))
}

// Render produces the string-safe form stored in assertion details: strings
// verbatim, everything else canonical JSON.
func Render(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// normalize maps a value onto the shapes encoding/json decodes into, so
// values read from YAML (int, map[string]any) and from JSON (float64)
// compare on content.
func normalize(v any) any {
	switch v.(type) {
	case nil, string, bool, float64:
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func isStructured(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
