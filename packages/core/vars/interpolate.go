package vars

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)
	wholeValuePattern  = regexp.MustCompile(`^\{\{(\w+)\}\}(.*)$`)
)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Interpolator rewrites {{name}} placeholders in a value tree.
type Interpolator struct {
	store *Store
	warn  WarnFunc
}

type InterpolatorOption func(*Interpolator)

// WithWarn reports unresolved placeholders through fn.
func WithWarn(fn WarnFunc) InterpolatorOption {
	return func(i *Interpolator) {
		i.warn = fn
	}
}

func NewInterpolator(store *Store, opts ...InterpolatorOption) *Interpolator {
	i := &Interpolator{store: store}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Interpolate is a shorthand for NewInterpolator(store).Value(v).
func Interpolate(v any, store *Store) any {
	return NewInterpolator(store).Value(v)
}

// Value returns a copy of v with every known placeholder replaced. Unknown
// placeholders are kept verbatim. Non-string scalars pass through unchanged.
func (i *Interpolator) Value(v any) any {
	switch val := v.(type) {
	case string:
		return i.String(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = i.Value(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for idx, item := range val {
			out[idx] = i.Value(item)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[k] = i.Text(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for idx, item := range val {
			out[idx] = i.Text(item)
		}
		return out
	default:
		return v
	}
}

// String interpolates a single string. When the whole string is one known
// placeholder the stored value is returned as is, keeping its type. A
// placeholder followed by a "/"-prefixed path is joined to it with exactly
// one slash.
func (i *Interpolator) String(s string) any {
	if m := wholeValuePattern.FindStringSubmatch(s); m != nil {
		if value, ok := i.store.Get(m[1]); ok {
			suffix := m[2]
			if suffix == "" {
				return value
			}
			if strings.HasPrefix(suffix, "/") {
				return JoinPath(Stringify(value), i.Text(suffix))
			}
		}
	}
	return i.Text(s)
}

// Text replaces each known placeholder with the string form of its value.
func (i *Interpolator) Text(s string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-2]
		if value, ok := i.store.Get(name); ok {
			return Stringify(value)
		}
		if i.warn != nil {
			i.warn("unresolved variable: %s", name)
		}
		return match
	})
}

// JoinPath joins base and path with exactly one separating slash.
func JoinPath(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// Stringify renders a variable value for textual substitution. Structured
// values become compact JSON; whole floats drop their fractional part.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%v", val)
	case []byte:
		return string(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

// Placeholders returns the placeholder names in s, in order of appearance.
func Placeholders(s string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		names = append(names, m[1])
	}
	return names
}

// Unresolved walks v and returns the placeholder names with no value in store.
func Unresolved(v any, store *Store) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch val := v.(type) {
		case string:
			for _, name := range Placeholders(val) {
				if !store.Has(name) && !seen[name] {
					seen[name] = true
					out = append(out, name)
				}
			}
		case map[string]any:
			for _, item := range val {
				walk(item)
			}
		case []any:
			for _, item := range val {
				walk(item)
			}
		case map[string]string:
			for _, item := range val {
				walk(item)
			}
		}
	}
	walk(v)
	return out
}
