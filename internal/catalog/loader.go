package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog indicates a catalog file that cannot be compiled
var ErrInvalidCatalog = errors.New("invalid catalog")

// File is the YAML layout of a catalog file.
type File struct {
	Tests []TestSpec `yaml:"tests"`
}

// TestSpec declares one test. Checks are combined with Match ("all" by
// default, or "any").
type TestSpec struct {
	Name        string      `yaml:"name"`
	Vector      string      `yaml:"vector"`
	Description string      `yaml:"description"`
	Match       string      `yaml:"match"`
	Checks      []CheckSpec `yaml:"checks"`
}

// CheckSpec declares one check. Value defaults to the test's vector for
// reflected, encoded, unescaped, script and fuzzy checks.
type CheckSpec struct {
	Kind      string   `yaml:"kind"` // reflected, encoded, unescaped, selector, script, attribute, regex, fuzzy
	Value     string   `yaml:"value"`
	Attribute string   `yaml:"attribute"`
	Threshold float64  `yaml:"threshold"`
	Formats   []string `yaml:"formats"` // encoded: accepted reflection formats
	Chars     string   `yaml:"chars"`   // unescaped: characters that must survive
}

var reflectionFormats = map[string]bool{
	FormatDecoded:       true,
	FormatURLEncoded:    true,
	FormatHTMLEncoded:   true,
	FormatDoubleEncoded: true,
}

// LoadFile reads and compiles a YAML catalog.
func LoadFile(path string) ([]Test, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	tests, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tests, nil
}

// Parse compiles YAML catalog data.
func Parse(data []byte) ([]Test, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if len(f.Tests) == 0 {
		return nil, fmt.Errorf("%w: no tests", ErrInvalidCatalog)
	}

	tests := make([]Test, 0, len(f.Tests))
	for i, spec := range f.Tests {
		t, err := spec.compile()
		if err != nil {
			return nil, fmt.Errorf("%w: test %d (%q): %w", ErrInvalidCatalog, i, spec.Name, err)
		}
		tests = append(tests, t)
	}
	return tests, nil
}

func (s TestSpec) compile() (Test, error) {
	if s.Name == "" {
		return Test{}, errors.New("name is required")
	}
	if s.Vector == "" {
		return Test{}, errors.New("vector is required")
	}

	specs := s.Checks
	if len(specs) == 0 {
		specs = []CheckSpec{{Kind: "reflected"}}
	}
	checks := make([]Check, 0, len(specs))
	for _, cs := range specs {
		c, err := cs.compile(s.Vector)
		if err != nil {
			return Test{}, err
		}
		checks = append(checks, c)
	}

	var check Check
	switch strings.ToLower(s.Match) {
	case "", "all":
		check = All(checks...)
	case "any":
		check = Any(checks...)
	default:
		return Test{}, fmt.Errorf("unknown match %q", s.Match)
	}
	if len(checks) == 1 {
		check = checks[0]
	}

	return Test{
		Name:        s.Name,
		Vector:      s.Vector,
		Description: s.Description,
		Check:       check,
	}, nil
}

func (c CheckSpec) compile(vector string) (Check, error) {
	value := c.Value
	if value == "" {
		value = vector
	}
	switch strings.ToLower(c.Kind) {
	case "", "reflected":
		return Reflected(value), nil
	case "encoded":
		for _, f := range c.Formats {
			if !reflectionFormats[f] {
				return nil, fmt.Errorf("unknown reflection format %q", f)
			}
		}
		return Encoded(value, c.Formats...), nil
	case "unescaped":
		return Unescaped(value, c.Chars), nil
	case "selector":
		if c.Value == "" {
			return nil, errors.New("selector check needs a value")
		}
		// goquery matches nothing on a bad selector, so catch typos here
		if _, err := cascadia.Compile(c.Value); err != nil {
			return nil, fmt.Errorf("invalid selector %q: %w", c.Value, err)
		}
		return Selector(c.Value), nil
	case "script":
		return ScriptContains(value), nil
	case "attribute":
		if c.Attribute == "" {
			return nil, errors.New("attribute check needs an attribute")
		}
		return AttributeContains(c.Attribute, value), nil
	case "regex":
		if c.Value == "" {
			return nil, errors.New("regex check needs a value")
		}
		return Regex(c.Value)
	case "fuzzy":
		return Fuzzy(value, c.Threshold), nil
	default:
		return nil, fmt.Errorf("unknown check kind %q", c.Kind)
	}
}
