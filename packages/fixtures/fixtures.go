package fixtures

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Document is a fixture file: modules, cases and suites that refer to each
// other by name, plus optional seed variables for runs.
type Document struct {
	Variables map[string]any `yaml:"variables,omitempty"`
	Modules   []ModuleDef    `yaml:"modules,omitempty"`
	Cases     []CaseDef      `yaml:"cases,omitempty"`
	Suites    []SuiteDef     `yaml:"suites,omitempty"`
}

type ModuleDef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// CaseDef is a test case that names its module instead of holding its id.
type CaseDef struct {
	model.TestCase `yaml:",inline"`
	Module         string `yaml:"module,omitempty"`
}

type SuiteDef struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Items       []ItemDef `yaml:"items,omitempty"`
}

// ItemDef references exactly one of a case, a module or a suite by name.
// Items without an explicit order keep their position in the list.
type ItemDef struct {
	Case   string `yaml:"case,omitempty"`
	Module string `yaml:"module,omitempty"`
	Suite  string `yaml:"suite,omitempty"`
	Order  *int   `yaml:"order,omitempty"`
}

func (it ItemDef) kind() (model.ItemType, string, error) {
	var set []model.ItemType
	var name string
	if it.Case != "" {
		set, name = append(set, model.ItemCase), it.Case
	}
	if it.Module != "" {
		set, name = append(set, model.ItemModule), it.Module
	}
	if it.Suite != "" {
		set, name = append(set, model.ItemSuite), it.Suite
	}
	if len(set) != 1 {
		return "", "", fmt.Errorf("item must name exactly one of case, module or suite")
	}
	return set[0], name, nil
}

// Load reads and validates a fixture document.
func Load(fs afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("fixture file %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a fixture document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadCase reads a single case definition, as used by debug runs. A file
// holding a full document yields its first case and its variables.
func LoadCase(fs afero.Fs, path string) (*model.TestCase, map[string]any, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read case file: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Cases) > 0 {
		tc := doc.Cases[0].TestCase
		return &tc, doc.Variables, nil
	}

	var def CaseDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, nil, fmt.Errorf("failed to parse case file: %w", err)
	}
	if def.Name == "" || def.URL == "" {
		return nil, nil, fmt.Errorf("case file %s: name and url are required", path)
	}
	return &def.TestCase, nil, nil
}

// Validate checks names are unique and every reference resolves within the
// document.
func (d *Document) Validate() error {
	var errs []string
	modules := make(map[string]bool)
	cases := make(map[string]bool)
	suites := make(map[string]bool)

	for i, m := range d.Modules {
		switch {
		case m.Name == "":
			errs = append(errs, fmt.Sprintf("modules[%d]: name is required", i))
		case modules[m.Name]:
			errs = append(errs, fmt.Sprintf("modules[%d]: duplicate module %q", i, m.Name))
		}
		modules[m.Name] = true
	}

	for i, c := range d.Cases {
		switch {
		case c.Name == "":
			errs = append(errs, fmt.Sprintf("cases[%d]: name is required", i))
		case cases[c.Name]:
			errs = append(errs, fmt.Sprintf("cases[%d]: duplicate case %q", i, c.Name))
		}
		cases[c.Name] = true
		if c.URL == "" {
			errs = append(errs, fmt.Sprintf("case %q: url is required", c.Name))
		}
		if c.Module != "" && !modules[c.Module] {
			errs = append(errs, fmt.Sprintf("case %q: unknown module %q", c.Name, c.Module))
		}
	}

	for i, s := range d.Suites {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Sprintf("suites[%d]: name is required", i))
		case suites[s.Name]:
			errs = append(errs, fmt.Sprintf("suites[%d]: duplicate suite %q", i, s.Name))
		}
		suites[s.Name] = true
	}

	for _, s := range d.Suites {
		for j, it := range s.Items {
			typ, name, err := it.kind()
			if err != nil {
				errs = append(errs, fmt.Sprintf("suite %q items[%d]: %v", s.Name, j, err))
				continue
			}
			known := map[model.ItemType]map[string]bool{
				model.ItemCase:   cases,
				model.ItemModule: modules,
				model.ItemSuite:  suites,
			}[typ]
			if !known[name] {
				errs = append(errs, fmt.Sprintf("suite %q items[%d]: unknown %s %q", s.Name, j, typ, name))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid fixture:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Writer is the part of the store fixtures are applied to.
type Writer interface {
	CreateModule(ctx context.Context, m *model.TestModule) (int64, error)
	CreateCase(ctx context.Context, c *model.TestCase) (int64, error)
	CreateSuite(ctx context.Context, s *model.TestSuite) (int64, error)
	UpdateSuite(ctx context.Context, s *model.TestSuite) error
}

// Applied maps the names in a document to the ids they were stored under.
type Applied struct {
	Modules map[string]int64
	Cases   map[string]int64
	Suites  map[string]int64
}

// Apply stores every entity of doc. Suites are created before their items
// are attached, so items may reference suites declared later in the file.
func Apply(ctx context.Context, w Writer, doc *Document) (*Applied, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	out := &Applied{
		Modules: make(map[string]int64, len(doc.Modules)),
		Cases:   make(map[string]int64, len(doc.Cases)),
		Suites:  make(map[string]int64, len(doc.Suites)),
	}

	for _, m := range doc.Modules {
		id, err := w.CreateModule(ctx, &model.TestModule{Name: m.Name, Description: m.Description})
		if err != nil {
			return out, fmt.Errorf("creating module %q: %w", m.Name, err)
		}
		out.Modules[m.Name] = id
	}

	for _, c := range doc.Cases {
		tc := c.TestCase
		tc.ID = 0
		if c.Module != "" {
			id := out.Modules[c.Module]
			tc.ModuleID = &id
		}
		id, err := w.CreateCase(ctx, &tc)
		if err != nil {
			return out, fmt.Errorf("creating case %q: %w", c.Name, err)
		}
		out.Cases[c.Name] = id
	}

	for _, s := range doc.Suites {
		id, err := w.CreateSuite(ctx, &model.TestSuite{Name: s.Name, Description: s.Description})
		if err != nil {
			return out, fmt.Errorf("creating suite %q: %w", s.Name, err)
		}
		out.Suites[s.Name] = id
	}

	for _, s := range doc.Suites {
		items := make([]model.SuiteItem, 0, len(s.Items))
		for i, it := range s.Items {
			order := i
			if it.Order != nil {
				order = *it.Order
			}
			item, err := out.resolve(it, order)
			if err != nil {
				return out, fmt.Errorf("suite %q: %w", s.Name, err)
			}
			items = append(items, item)
		}
		suite := &model.TestSuite{
			ID:          out.Suites[s.Name],
			Name:        s.Name,
			Description: s.Description,
			Items:       items,
		}
		if err := w.UpdateSuite(ctx, suite); err != nil {
			return out, fmt.Errorf("attaching items to suite %q: %w", s.Name, err)
		}
	}

	return out, nil
}

func (a *Applied) resolve(it ItemDef, order int) (model.SuiteItem, error) {
	typ, name, err := it.kind()
	if err != nil {
		return model.SuiteItem{}, err
	}
	switch typ {
	case model.ItemCase:
		return model.NewCaseItem(a.Cases[name], order), nil
	case model.ItemModule:
		return model.NewModuleItem(a.Modules[name], order), nil
	default:
		return model.NewSuiteItem(a.Suites[name], order), nil
	}
}
