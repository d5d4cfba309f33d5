package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/goldenthread/extract"
	"github.com/c360studio/goldenthread/manifest"
	"github.com/c360studio/goldenthread/trace"
)

func symbolFixture() []extract.Symbol {
	return []extract.Symbol{
		{Name: "OAuthProvider", Kind: extract.KindClass, File: "oauth.py"},
		{Name: "authenticate", Kind: extract.KindMethod, File: "oauth.py", Parent: "OAuthProvider"},
		{Name: "format_date", Kind: extract.KindFunction, File: "utils.py"},
		{Name: "_internal_helper", Kind: extract.KindFunction, File: "utils.py"},
		{Name: "test_login", Kind: extract.KindFunction, File: "test_oauth.py"},
	}
}

func mappedManifest(paths ...string) *manifest.Manifest {
	m := &manifest.Manifest{Service: "auth", Version: "1.0"}
	for _, p := range paths {
		m.Symbols = append(m.Symbols, manifest.SymbolMapping{
			Path: p, Kind: "function", IDs: []string{"FR-AUTH-001"},
		})
	}
	return m
}

func TestCheckOrphans_Clean(t *testing.T) {
	m := mappedManifest(
		"oauth.py::OAuthProvider",
		"oauth.py::OAuthProvider.authenticate",
		"utils.py::format_date",
	)
	diags := CheckOrphans(m, symbolFixture(), nil)
	assert.Empty(t, diags)
}

func TestCheckOrphans_OrphanCode(t *testing.T) {
	m := mappedManifest("oauth.py::OAuthProvider", "oauth.py::OAuthProvider.authenticate")
	diags := CheckOrphans(m, symbolFixture(), nil)

	orphan, ok := diagFor(diags, trace.CodeOrphanCode, "utils.py::format_date")
	require.True(t, ok)
	assert.Equal(t, trace.SeverityAdvisory, orphan.Severity)
	assert.Contains(t, orphan.Hint, "traceability.symbols")
	assert.Contains(t, orphan.Hint, "utils.py::format_date")
}

func TestCheckOrphans_PrivateAndTestSymbolsSkipped(t *testing.T) {
	// Nothing mapped; only the three public non-test symbols show up.
	m := mappedManifest()
	diags := CheckOrphans(m, symbolFixture(), nil)

	subjects := make([]string, len(diags))
	for i, d := range diags {
		subjects[i] = d.Subject
	}
	assert.NotContains(t, subjects, "utils.py::_internal_helper")
	assert.NotContains(t, subjects, "test_oauth.py::test_login")
	assert.Len(t, diags, 3)
}

func TestCheckOrphans_OrphanManifestWithSuggestion(t *testing.T) {
	// Manifest still references the pre-rename method name.
	m := mappedManifest(
		"oauth.py::OAuthProvider",
		"oauth.py::OAuthProvider.authentikate",
		"utils.py::format_date",
	)
	diags := CheckOrphans(m, symbolFixture(), nil)

	stale, ok := diagFor(diags, trace.CodeOrphanManifest, "oauth.py::OAuthProvider.authentikate")
	require.True(t, ok)
	assert.Equal(t, trace.SeverityAdvisory, stale.Severity)
	assert.Contains(t, stale.Suggestions, "oauth.py::OAuthProvider.authenticate")

	// The renamed symbol is also orphan code, with the reverse suggestion.
	code, ok := diagFor(diags, trace.CodeOrphanCode, "oauth.py::OAuthProvider.authenticate")
	require.True(t, ok)
	assert.Contains(t, code.Suggestions, "oauth.py::OAuthProvider.authentikate")
}

func TestCheckOrphans_ExclusionsBothSides(t *testing.T) {
	m := mappedManifest(
		"oauth.py::OAuthProvider",
		"oauth.py::OAuthProvider.authenticate",
		"legacy.py::old_entrypoint", // stale, but excluded below
	)
	m.Exclusions = manifest.Exclusions{
		Patterns: []string{"utils.py"},
		Symbols:  []string{"legacy.py::old_entrypoint"},
	}

	diags := CheckOrphans(m, symbolFixture(), nil)
	assert.Empty(t, diags)
}

func TestCheckOrphans_GlobalIgnorePatterns(t *testing.T) {
	m := mappedManifest(
		"oauth.py::OAuthProvider",
		"oauth.py::OAuthProvider.authenticate",
	)
	diags := CheckOrphans(m, symbolFixture(), []string{"utils.py"})
	assert.Empty(t, diags)
}

func TestShouldCheck_PrivateRules(t *testing.T) {
	init := extract.Symbol{Name: "__init__", Kind: extract.KindMethod, File: "a.py", Parent: "Service"}
	assert.False(t, shouldCheck(init, nil), "constructors are plumbing, not traceability targets")

	repr := extract.Symbol{Name: "__repr__", Kind: extract.KindMethod, File: "a.py", Parent: "Service"}
	assert.False(t, shouldCheck(repr, nil))

	helper := extract.Symbol{Name: "_refresh", Kind: extract.KindMethod, File: "a.py", Parent: "Service"}
	assert.False(t, shouldCheck(helper, nil))

	privateClassMethod := extract.Symbol{Name: "run", Kind: extract.KindMethod, File: "a.py", Parent: "_Worker"}
	assert.False(t, shouldCheck(privateClassMethod, nil))

	public := extract.Symbol{Name: "authenticate", Kind: extract.KindMethod, File: "a.py", Parent: "Service"}
	assert.True(t, shouldCheck(public, nil))
}

func TestIsTestFile(t *testing.T) {
	assert.True(t, isTestFile("pkg/store_test.go"))
	assert.True(t, isTestFile("tests/test_oauth.py"))
	assert.True(t, isTestFile("src/session.spec.ts"))
	assert.True(t, isTestFile("src/session.test.tsx"))
	assert.False(t, isTestFile("pkg/store.go"))
	assert.False(t, isTestFile("src/contest.py"))
}
