package capture

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/apisuite/packages/core/vars"
	"github.com/abdul-hamid-achik/apisuite/packages/logging"
	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/tidwall/gjson"
)

var (
	indexPattern  = regexp.MustCompile(`\[(\d+|\*)\]`)
	quotedPattern = regexp.MustCompile(`\[['"]([^'"\]]+)['"]\]`)

	// gjsonMeta are the characters gjson reads as path syntax.
	gjsonMeta = `\.*?#|@!=<>%[]{}(),:`
)

// escapeKey makes a literal object key safe to use as one gjson segment.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if strings.ContainsRune(gjsonMeta, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// segments splits a gjson path on unescaped dots.
func segments(p string) []string {
	var (
		out     []string
		cur     strings.Builder
		escaped bool
	)
	for _, r := range p {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '.':
			out = append(out, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	return append(out, cur.String())
}

// hasWildcard reports whether any segment of a gjson path is the # operator.
func hasWildcard(p string) bool {
	for _, seg := range segments(p) {
		if seg == "#" {
			return true
		}
	}
	return false
}

// hasBareBracket reports an unescaped [ or ] left in a converted path.
func hasBareBracket(p string) bool {
	escaped := false
	for _, r := range p {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '[' || r == ']':
			return true
		}
	}
	return false
}

// ToGJSON converts a JSONPath-style expression ($.a.b, $.items[0].id,
// $['key'], items[*].id) into gjson path syntax. Keys in brackets are
// literal, so $['a.b'] names the key "a.b". An empty result means the whole
// document.
func ToGJSON(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", fmt.Errorf("empty extraction path")
	}
	if strings.Contains(p, "..") {
		return "", fmt.Errorf("recursive descent is not supported: %s", path)
	}
	switch {
	case p == "$":
		return "", nil
	case strings.HasPrefix(p, "$."):
		p = p[2:]
	case strings.HasPrefix(p, "$["):
		p = p[1:]
	case strings.HasPrefix(p, "$"):
		return "", fmt.Errorf("malformed path: %s", path)
	}

	p = quotedPattern.ReplaceAllStringFunc(p, func(m string) string {
		return "." + escapeKey(m[2:len(m)-2])
	})
	p = indexPattern.ReplaceAllStringFunc(p, func(m string) string {
		inner := m[1 : len(m)-1]
		if inner == "*" {
			return ".#"
		}
		return "." + inner
	})
	p = strings.TrimPrefix(p, ".")

	if hasBareBracket(p) {
		return "", fmt.Errorf("malformed path: %s", path)
	}
	for _, seg := range segments(p) {
		if seg == "" {
			return "", fmt.Errorf("malformed path: %s", path)
		}
	}
	return p, nil
}

// Lookup evaluates path against body and returns the first match.
func Lookup(body any, path string) (any, bool, error) {
	gpath, err := ToGJSON(path)
	if err != nil {
		return nil, false, err
	}

	switch body.(type) {
	case map[string]any, []any:
	default:
		return nil, false, fmt.Errorf("response body is not indexable (%T)", body)
	}

	if gpath == "" {
		return body, true, nil
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, false, fmt.Errorf("cannot encode response body: %w", err)
	}

	result := gjson.GetBytes(raw, gpath)
	if !result.Exists() {
		return nil, false, nil
	}
	if hasWildcard(gpath) && result.IsArray() {
		items := result.Array()
		if len(items) == 0 {
			return nil, false, nil
		}
		return items[0].Value(), true, nil
	}
	return result.Value(), true, nil
}

// Extract applies each rule in declaration order. Matches are written to
// store; a rule that fails or matches nothing leaves store untouched.
func Extract(body any, rules model.ExtractRules, store *vars.Store, log logging.Logger) []model.Extraction {
	log = logging.OrDiscard(log)
	out := make([]model.Extraction, 0, len(rules))

	for _, rule := range rules {
		ex := model.Extraction{Name: rule.Name, Path: rule.Path}

		value, found, err := Lookup(body, rule.Path)
		switch {
		case err != nil:
			ex.Error = err.Error()
			log.Printf("extract %s: %v", rule.Name, err)
		case !found:
			log.Printf("extract %s: no match for %s", rule.Name, rule.Path)
		default:
			ex.Found = true
			ex.Value = value
			store.Set(rule.Name, value)
			log.Printf("extract %s = %s", rule.Name, vars.Stringify(value))
		}
		out = append(out, ex)
	}
	return out
}
