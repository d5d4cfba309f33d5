package validate

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/c360studio/goldenthread/extract"
	"github.com/c360studio/goldenthread/manifest"
	"github.com/c360studio/goldenthread/trace"
)

// CheckOrphans reconciles extracted symbols against manifest declarations.
// A symbol in code but not the manifest is ORPHAN_CODE; a declaration with
// no matching symbol is ORPHAN_MANIFEST. Both directions get fuzzy-match
// suggestions so a rename shows up as "did you mean" instead of two
// unrelated findings.
func CheckOrphans(m *manifest.Manifest, symbols []extract.Symbol, ignorePatterns []string) []trace.Diagnostic {
	var diags []trace.Diagnostic

	declared := m.SymbolPaths()
	extracted := make(map[string]bool, len(symbols))
	var checkable []string

	for _, sym := range symbols {
		qp := sym.QualifiedPath()
		extracted[qp] = true
		if !shouldCheck(sym, ignorePatterns) || m.ExcludesSymbol(qp) {
			continue
		}
		checkable = append(checkable, qp)
	}

	declaredList := make([]string, 0, len(declared))
	for path := range declared {
		declaredList = append(declaredList, path)
	}

	for _, qp := range checkable {
		if declared[qp] {
			continue
		}
		d := trace.New(trace.CodeOrphanCode, qp,
			fmt.Sprintf("symbol %s has no manifest mapping", qp))
		d.Hint = orphanCodeHint(qp)
		d.Suggestions = closestMatches(qp, declaredList)
		diags = append(diags, d)
	}

	for _, sym := range m.Symbols {
		if extracted[sym.Path] || m.ExcludesSymbol(sym.Path) {
			continue
		}
		d := trace.New(trace.CodeOrphanManifest, sym.Path,
			fmt.Sprintf("manifest entry %s matches no symbol in the codebase", sym.Path))
		d.Hint = "the symbol may have been renamed, moved, or deleted; update or remove the mapping"
		d.Suggestions = closestMatches(sym.Path, checkable)
		diags = append(diags, d)
	}

	return diags
}

// orphanCodeHint renders a ready-to-paste manifest snippet for an
// unmapped symbol.
func orphanCodeHint(qualifiedPath string) string {
	return fmt.Sprintf(
		"add to traceability.symbols:\n  - path: %s\n    type: function\n    ids: [FR-XXX-000]",
		qualifiedPath)
}

// shouldCheck decides whether a symbol participates in orphan detection.
// Private helpers, test code, and ignored files are structural noise, not
// traceability gaps.
func shouldCheck(sym extract.Symbol, ignorePatterns []string) bool {
	if isTestFile(sym.File) {
		return false
	}
	if extract.MatchesAny(ignorePatterns, sym.File) {
		return false
	}

	// Leading underscore marks a private symbol; this also covers dunders
	// like __init__, which are protocol plumbing, not traceability targets.
	if strings.HasPrefix(sym.Name, "_") {
		return false
	}
	// Methods of private classes are private too.
	if strings.HasPrefix(sym.Parent, "_") {
		return false
	}
	return true
}

// isTestFile recognizes test files across the supported languages.
func isTestFile(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "test_"),
		strings.HasSuffix(base, "_test.go"),
		strings.HasSuffix(base, "_test.py"):
		return true
	}
	for _, marker := range []string{".test.", ".spec."} {
		if strings.Contains(base, marker) {
			return true
		}
	}
	return false
}
