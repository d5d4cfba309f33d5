// Package manifest loads and validates per-service traceability manifests
// (.golden-thread.yaml): the declared mapping from code symbols to
// requirement IDs.
package manifest

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/goldenthread/extract"
	"github.com/c360studio/goldenthread/trace"
)

// DefaultFilename is the manifest file name looked up in each service
// directory.
const DefaultFilename = ".golden-thread.yaml"

// SymbolMapping maps one code symbol to requirement IDs.
type SymbolMapping struct {
	// Path is the qualified symbol path, e.g.
	// "auth/oauth.py::OAuthProvider.authenticate".
	Path string `yaml:"path" json:"path"`

	// Kind is the declared symbol kind (class, struct, function, ...).
	Kind string `yaml:"type" json:"type"`

	// IDs are the requirement IDs this symbol implements.
	IDs []string `yaml:"ids" json:"ids"`
}

// Feature declares a feature and the upstream requirements it implements.
type Feature struct {
	ID                   string   `yaml:"id" json:"id"`
	Description          string   `yaml:"description,omitempty" json:"description,omitempty"`
	BusinessRequirements []string `yaml:"business_requirements,omitempty" json:"business_requirements,omitempty"`
	UserRequirements     []string `yaml:"user_requirements,omitempty" json:"user_requirements,omitempty"`
	CallFlows            []string `yaml:"call_flows,omitempty" json:"call_flows,omitempty"`
}

// Interface declares an API surface (REST, GraphQL, gRPC) and its
// requirement links.
type Interface struct {
	ID           string   `yaml:"id" json:"id"`
	Kind         string   `yaml:"type" json:"type"` // rest_api, graphql, grpc
	Endpoint     string   `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Operation    string   `yaml:"operation,omitempty" json:"operation,omitempty"`
	Service      string   `yaml:"service,omitempty" json:"service,omitempty"`
	Method       string   `yaml:"method,omitempty" json:"method,omitempty"`
	Requirements []string `yaml:"requirements,omitempty" json:"requirements,omitempty"`
}

// TestMapping links a test file to test cases and verifications.
type TestMapping struct {
	Path          string   `yaml:"path" json:"path"`
	TestCases     []string `yaml:"test_cases,omitempty" json:"test_cases,omitempty"`
	Verifications []string `yaml:"verifications,omitempty" json:"verifications,omitempty"`
}

// Exclusions lists glob patterns and explicit symbol paths removed from
// orphan consideration on both sides of the diff.
type Exclusions struct {
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Symbols  []string `yaml:"symbols,omitempty" json:"symbols,omitempty"`
}

// Manifest is one service's traceability declaration. Loaded once per
// validation run and immutable during it.
type Manifest struct {
	Service    string         `yaml:"service" json:"service"`
	Version    string         `yaml:"version" json:"version"`
	Metadata   map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Features   []Feature      `json:"features"`
	Symbols    []SymbolMapping `json:"symbols"`
	Interfaces []Interface    `json:"interfaces,omitempty"`
	Tests      []TestMapping  `json:"tests,omitempty"`
	Exclusions Exclusions     `yaml:"exclusions,omitempty" json:"exclusions,omitempty"`
}

// manifestFile is the YAML wire shape: mappings nest under "traceability".
type manifestFile struct {
	Service      string         `yaml:"service"`
	Version      string         `yaml:"version"`
	Metadata     map[string]any `yaml:"metadata"`
	Traceability struct {
		Features   []Feature       `yaml:"features"`
		Symbols    []SymbolMapping `yaml:"symbols"`
		Interfaces []Interface     `yaml:"interfaces"`
		Tests      []TestMapping   `yaml:"tests"`
	} `yaml:"traceability"`
	Exclusions Exclusions `yaml:"exclusions"`
}

// SchemaError reports a structurally invalid manifest. Fatal for the owning
// service; other services are unaffected.
type SchemaError struct {
	Path       string
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid manifest %s: %s", e.Path, strings.Join(e.Violations, "; "))
}

// Load reads and validates one manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &SchemaError{Path: path, Violations: []string{fmt.Sprintf("not valid YAML: %v", err)}}
	}

	m := &Manifest{
		Service:    file.Service,
		Version:    file.Version,
		Metadata:   file.Metadata,
		Features:   file.Traceability.Features,
		Symbols:    file.Traceability.Symbols,
		Interfaces: file.Traceability.Interfaces,
		Tests:      file.Traceability.Tests,
		Exclusions: file.Exclusions,
	}

	if violations := m.validate(); len(violations) > 0 {
		return nil, &SchemaError{Path: path, Violations: violations}
	}
	return m, nil
}

// validate collects every schema violation rather than stopping at the
// first, so one load failure names everything that needs fixing.
func (m *Manifest) validate() []string {
	var violations []string

	if m.Service == "" {
		violations = append(violations, "missing required field: service")
	}
	if m.Version == "" {
		violations = append(violations, "missing required field: version")
	}

	seen := make(map[string]bool, len(m.Symbols))
	for _, sym := range m.Symbols {
		switch {
		case sym.Path == "":
			violations = append(violations, "symbol mapping missing required field: path")
			continue
		case !wellFormedPath(sym.Path):
			violations = append(violations, fmt.Sprintf("symbol path %q is not well-formed (want file::Symbol or file::Parent.Symbol)", sym.Path))
			continue
		}
		if seen[sym.Path] {
			violations = append(violations, fmt.Sprintf("duplicate symbol path: %s", sym.Path))
		}
		seen[sym.Path] = true

		if sym.Kind == "" {
			violations = append(violations, fmt.Sprintf("symbol mapping %q missing required field: type", sym.Path))
		}
		if len(sym.IDs) == 0 {
			violations = append(violations, fmt.Sprintf("symbol mapping %q missing required field: ids", sym.Path))
		}
	}

	for _, feat := range m.Features {
		if feat.ID == "" {
			violations = append(violations, "feature declaration missing required field: id")
		}
	}

	for _, iface := range m.Interfaces {
		if iface.ID == "" {
			violations = append(violations, "interface mapping missing required field: id")
		}
	}

	for _, test := range m.Tests {
		if test.Path == "" {
			violations = append(violations, "test mapping missing required field: path")
		}
	}

	return violations
}

// wellFormedPath reports whether a qualified symbol path has the
// "file::Symbol" shape. A path may legitimately match no extracted symbol
// (that is an orphan, not a load error), but it must be syntactically
// sound.
func wellFormedPath(path string) bool {
	file, symbol, found := strings.Cut(path, "::")
	if !found || file == "" || symbol == "" {
		return false
	}
	return !strings.ContainsAny(path, " \t\n")
}

// SymbolPaths returns the set of qualified paths declared in the manifest.
func (m *Manifest) SymbolPaths() map[string]bool {
	paths := make(map[string]bool, len(m.Symbols))
	for _, sym := range m.Symbols {
		paths[sym.Path] = true
	}
	return paths
}

// IDsForSymbol returns the requirement IDs mapped to a qualified path.
func (m *Manifest) IDsForSymbol(path string) []string {
	for _, sym := range m.Symbols {
		if sym.Path == path {
			return sym.IDs
		}
	}
	return nil
}

// ReferencedIDs returns every ID referenced anywhere in the manifest,
// grouped by registry type, each group sorted and de-duplicated.
func (m *Manifest) ReferencedIDs() map[trace.IDType][]string {
	byType := make(map[trace.IDType]map[string]bool)
	add := func(id string) {
		t, ok := trace.TypeOf(id)
		if !ok {
			return
		}
		if byType[t] == nil {
			byType[t] = make(map[string]bool)
		}
		byType[t][id] = true
	}

	for _, sym := range m.Symbols {
		for _, id := range sym.IDs {
			add(id)
		}
	}
	for _, feat := range m.Features {
		add(feat.ID)
		for _, id := range feat.BusinessRequirements {
			add(id)
		}
		for _, id := range feat.UserRequirements {
			add(id)
		}
		for _, id := range feat.CallFlows {
			add(id)
		}
	}
	for _, iface := range m.Interfaces {
		add(iface.ID)
		for _, id := range iface.Requirements {
			add(id)
		}
	}
	for _, test := range m.Tests {
		for _, id := range test.TestCases {
			add(id)
		}
		for _, id := range test.Verifications {
			add(id)
		}
	}

	out := make(map[trace.IDType][]string, len(byType))
	for t, ids := range byType {
		list := make([]string, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		sort.Strings(list)
		out[t] = list
	}
	return out
}

// AllIDStrings returns every raw ID string appearing anywhere in the
// manifest, sorted and de-duplicated, including malformed ones. Format
// checking happens downstream so a typo surfaces as a diagnostic instead of
// silently vanishing.
func (m *Manifest) AllIDStrings() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	for _, sym := range m.Symbols {
		for _, id := range sym.IDs {
			add(id)
		}
	}
	for _, feat := range m.Features {
		add(feat.ID)
		for _, id := range feat.BusinessRequirements {
			add(id)
		}
		for _, id := range feat.UserRequirements {
			add(id)
		}
		for _, id := range feat.CallFlows {
			add(id)
		}
	}
	for _, iface := range m.Interfaces {
		add(iface.ID)
		for _, id := range iface.Requirements {
			add(id)
		}
	}
	for _, test := range m.Tests {
		for _, id := range test.TestCases {
			add(id)
		}
		for _, id := range test.Verifications {
			add(id)
		}
	}

	sort.Strings(ids)
	return ids
}

// RequirementIDs returns the FR/NFR/TSR/TCR IDs referenced anywhere in the
// manifest: the set declared as requiring code.
func (m *Manifest) RequirementIDs() []string {
	byType := m.ReferencedIDs()
	var ids []string
	for _, t := range trace.RequirementTypes {
		ids = append(ids, byType[t]...)
	}
	sort.Strings(ids)
	return ids
}

// MappedRequirementIDs returns the requirement IDs that have at least one
// symbol mapping.
func (m *Manifest) MappedRequirementIDs() map[string]bool {
	mapped := make(map[string]bool)
	for _, sym := range m.Symbols {
		for _, id := range sym.IDs {
			if t, ok := trace.TypeOf(id); ok && trace.IsRequirement(t) {
				mapped[id] = true
			}
		}
	}
	return mapped
}

// ExcludesSymbol reports whether a qualified path is excluded, either
// explicitly or because its file matches an exclusion glob.
func (m *Manifest) ExcludesSymbol(qualifiedPath string) bool {
	for _, s := range m.Exclusions.Symbols {
		if s == qualifiedPath {
			return true
		}
	}
	file, _, _ := strings.Cut(qualifiedPath, "::")
	return extract.MatchesAny(m.Exclusions.Patterns, file)
}
