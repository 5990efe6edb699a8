package guard

import (
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed routes.yaml
var defaultRoutes string

// Route binds a path pattern to its access requirement
type Route struct {
	Pattern string `yaml:"pattern"`
	Access  Access `yaml:"access"`
}

// UnmarshalYAML parses the textual access names
func (a *Access) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "public":
		*a = Public
	case "require-auth":
		*a = RequireAuth
	case "public-only":
		*a = PublicOnly
	default:
		return fmt.Errorf("unknown access %q at line %d", node.Value, node.Line)
	}
	return nil
}

// Table resolves a path to its access requirement
type Table struct {
	exact    map[string]Access
	prefixes []Route // longest prefix first
}

type tableFile struct {
	Routes []Route `yaml:"routes"`
}

// LoadTable parses a YAML route table
func LoadTable(r io.Reader) (*Table, error) {
	var f tableFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse route table: %w", err)
	}
	return NewTable(f.Routes)
}

// DefaultTable returns the embedded route table
func DefaultTable() *Table {
	t, err := LoadTable(strings.NewReader(defaultRoutes))
	if err != nil {
		panic(err)
	}
	return t
}

// NewTable builds a table from routes
func NewTable(routes []Route) (*Table, error) {
	t := &Table{exact: make(map[string]Access)}
	for _, r := range routes {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("route pattern %q must start with /", r.Pattern)
		}
		if base, ok := strings.CutSuffix(r.Pattern, "/*"); ok {
			t.prefixes = append(t.prefixes, Route{Pattern: base, Access: r.Access})
			continue
		}
		if _, dup := t.exact[r.Pattern]; dup {
			return nil, fmt.Errorf("duplicate route pattern %q", r.Pattern)
		}
		t.exact[r.Pattern] = r.Access
	}
	sort.SliceStable(t.prefixes, func(i, j int) bool {
		return len(t.prefixes[i].Pattern) > len(t.prefixes[j].Pattern)
	})
	return t, nil
}

// Lookup returns the access requirement for path
func (t *Table) Lookup(path string) Access {
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if a, ok := t.exact[path]; ok {
		return a
	}
	for _, p := range t.prefixes {
		if path == p.Pattern || strings.HasPrefix(path, p.Pattern+"/") {
			return p.Access
		}
	}
	return Public
}

// Intent builds the navigation intent for path
func (t *Table) Intent(path string) Intent {
	return Intent{Path: path, Access: t.Lookup(path)}
}
