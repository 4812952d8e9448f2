package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// TestCase is one declarative HTTP request plus its extraction and assertion rules.
type TestCase struct {
	ID             int64          `json:"id" yaml:"id,omitempty"`
	ModuleID       *int64         `json:"module_id,omitempty" yaml:"module_id,omitempty"`
	Name           string         `json:"name" yaml:"name"`
	Description    string         `json:"description,omitempty" yaml:"description,omitempty"`
	URL            string         `json:"url" yaml:"url"`
	Method         string         `json:"method" yaml:"method"`
	ContentType    string         `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Headers        map[string]any `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body           any            `json:"body,omitempty" yaml:"body,omitempty"`
	ExtractRules   ExtractRules   `json:"extract_rules,omitempty" yaml:"extract_rules,omitempty"`
	Assertions     []Assertion    `json:"assertions,omitempty" yaml:"assertions,omitempty"`
	SetupScript    string         `json:"setup_script,omitempty" yaml:"setup_script,omitempty"`
	TeardownScript string         `json:"teardown_script,omitempty" yaml:"teardown_script,omitempty"`
	Priority       int            `json:"priority" yaml:"priority,omitempty"`
	CreatedAt      time.Time      `json:"created_at" yaml:"-"`
	UpdatedAt      time.Time      `json:"updated_at" yaml:"-"`
}

// Copy returns a duplicate of the case suitable for re-insertion: identity and
// timestamps are cleared and the name gets a "_Copy" suffix.
func (c *TestCase) Copy() *TestCase {
	dup := *c
	dup.ID = 0
	dup.CreatedAt = time.Time{}
	dup.UpdatedAt = time.Time{}
	dup.Name = c.Name + "_Copy"
	if c.ModuleID != nil {
		id := *c.ModuleID
		dup.ModuleID = &id
	}
	if c.Headers != nil {
		dup.Headers = make(map[string]any, len(c.Headers))
		for k, v := range c.Headers {
			dup.Headers[k] = v
		}
	}
	dup.ExtractRules = append(ExtractRules(nil), c.ExtractRules...)
	dup.Assertions = append([]Assertion(nil), c.Assertions...)
	return &dup
}

// Assertion is one check/comparator/expectation triple.
type Assertion struct {
	Check      string `json:"check" yaml:"check"`
	Comparator string `json:"comparator" yaml:"comparator"`
	Expect     any    `json:"expect" yaml:"expect"`
}

// ExtractRule maps a variable name to an extraction path.
type ExtractRule struct {
	Name string
	Path string
}

// ExtractRules keeps extraction rules in the order they were declared.
// It is encoded as a JSON/YAML object.
type ExtractRules []ExtractRule

func (r ExtractRules) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rule := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(rule.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(rule.Path)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *ExtractRules) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("extract rules: expected object, got %v", tok)
	}

	var rules ExtractRules
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("extract rules: invalid key %v", keyTok)
		}
		var path string
		if err := dec.Decode(&path); err != nil {
			return fmt.Errorf("extract rules: rule %q: %w", key, err)
		}
		rules = append(rules, ExtractRule{Name: key, Path: path})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = rules
	return nil
}

func (r ExtractRules) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, rule := range r {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: rule.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: rule.Path},
		)
	}
	return node, nil
}

func (r *ExtractRules) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("extract rules: expected mapping at line %d", node.Line)
	}
	rules := make(ExtractRules, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		rules = append(rules, ExtractRule{
			Name: node.Content[i].Value,
			Path: node.Content[i+1].Value,
		})
	}
	*r = rules
	return nil
}

// Map returns the rules as a plain map. Ordering is lost.
func (r ExtractRules) Map() map[string]string {
	m := make(map[string]string, len(r))
	for _, rule := range r {
		m[rule.Name] = rule.Path
	}
	return m
}

// SortCases orders cases the way a module lists them: priority ascending,
// then most recently created first.
func SortCases(cases []*TestCase) {
	sort.SliceStable(cases, func(i, j int) bool {
		if cases[i].Priority != cases[j].Priority {
			return cases[i].Priority < cases[j].Priority
		}
		return cases[i].CreatedAt.After(cases[j].CreatedAt)
	})
}

// TestModule is a named grouping of cases. Modules form a tree via ParentID.
type TestModule struct {
	ID          int64  `json:"id" yaml:"id,omitempty"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	ParentID    *int64 `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
}
