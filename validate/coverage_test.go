package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/goldenthread/manifest"
	"github.com/c360studio/goldenthread/registry"
	"github.com/c360studio/goldenthread/trace"
)

func codesOf(diags []trace.Diagnostic) []trace.Code {
	codes := make([]trace.Code, len(diags))
	for i, d := range diags {
		codes[i] = d.Code
	}
	return codes
}

func diagFor(diags []trace.Diagnostic, code trace.Code, subject string) (trace.Diagnostic, bool) {
	for _, d := range diags {
		if d.Code == code && d.Subject == subject {
			return d, true
		}
	}
	return trace.Diagnostic{}, false
}

func TestCheckCoverage_FullyCovered(t *testing.T) {
	m := &manifest.Manifest{
		Service: "auth",
		Version: "1.0",
		Features: []manifest.Feature{{
			ID:                   "FEAT-AUTH-001",
			BusinessRequirements: []string{"BR-AUTH-001"},
			UserRequirements:     []string{"UR-AUTH-001"},
			CallFlows:            []string{"CF-AUTH-001"},
		}},
		Symbols: []manifest.SymbolMapping{{
			Path: "oauth.py::authenticate",
			Kind: "function",
			IDs:  []string{"FR-AUTH-001"},
		}},
	}

	diags, stats := CheckCoverage(m)
	assert.Empty(t, diags)
	assert.Equal(t, 1, stats.RequiredIDs)
	assert.Equal(t, 1, stats.CoveredIDs)
	assert.InDelta(t, 100.0, stats.Percentage, 0.001)
}

func TestCheckCoverage_MissingLinks(t *testing.T) {
	m := &manifest.Manifest{
		Service:  "auth",
		Version:  "1.0",
		Features: []manifest.Feature{{ID: "FEAT-AUTH-001"}},
	}

	diags, _ := CheckCoverage(m)
	codes := codesOf(diags)
	assert.Contains(t, codes, trace.CodeMissingBR)
	assert.Contains(t, codes, trace.CodeMissingUR)
	assert.Contains(t, codes, trace.CodeMissingCF)

	cf, ok := diagFor(diags, trace.CodeMissingCF, "FEAT-AUTH-001")
	require.True(t, ok)
	assert.Equal(t, trace.SeverityAdvisory, cf.Severity)

	br, ok := diagFor(diags, trace.CodeMissingBR, "FEAT-AUTH-001")
	require.True(t, ok)
	assert.Equal(t, trace.SeverityBlocking, br.Severity)
}

func TestCheckCoverage_UnmappedRequirement(t *testing.T) {
	// FR-AUTH-002 is referenced by an interface but mapped to no symbol.
	m := &manifest.Manifest{
		Service: "auth",
		Version: "1.0",
		Symbols: []manifest.SymbolMapping{{
			Path: "oauth.py::authenticate",
			Kind: "function",
			IDs:  []string{"FR-AUTH-001"},
		}},
		Interfaces: []manifest.Interface{{
			ID:           "IF-AUTH-001",
			Kind:         "rest_api",
			Requirements: []string{"FR-AUTH-002"},
		}},
	}

	diags, stats := CheckCoverage(m)
	missing, ok := diagFor(diags, trace.CodeMissingFR, "FR-AUTH-002")
	require.True(t, ok)
	assert.Equal(t, trace.SeverityBlocking, missing.Severity)
	assert.NotEmpty(t, missing.Hint)

	assert.Equal(t, 2, stats.RequiredIDs)
	assert.Equal(t, 1, stats.CoveredIDs)
	assert.InDelta(t, 50.0, stats.Percentage, 0.001)
}

func TestCheckResolvedLinks(t *testing.T) {
	m := &manifest.Manifest{
		Service: "auth",
		Version: "1.0",
		Features: []manifest.Feature{{
			ID:                   "FEAT-AUTH-001",
			BusinessRequirements: []string{"BR-AUTH-001"},
			UserRequirements:     []string{"UR-AUTH-001"},
			CallFlows:            []string{"CF-AUTH-001"},
		}},
	}

	res := &registry.Resolution{
		Records: map[string]*registry.Record{
			"UR-AUTH-001": {ID: "UR-AUTH-001", Type: trace.TypeUR},
			"CF-AUTH-001": {ID: "CF-AUTH-001", Type: trace.TypeCF},
		},
		Missing: map[string]bool{"BR-AUTH-001": true},
	}

	diags := CheckResolvedLinks(m, res)
	codes := codesOf(diags)
	assert.Contains(t, codes, trace.CodeMissingBR, "sole declared BR failed to resolve")
	assert.NotContains(t, codes, trace.CodeMissingUR)
	assert.NotContains(t, codes, trace.CodeMissingCF)

	br, ok := diagFor(diags, trace.CodeMissingBR, "FEAT-AUTH-001")
	require.True(t, ok)
	assert.Equal(t, trace.SeverityBlocking, br.Severity)
}

func TestCheckCoverage_MalformedFeatureSkipped(t *testing.T) {
	m := &manifest.Manifest{
		Service:  "auth",
		Version:  "1.0",
		Features: []manifest.Feature{{ID: "not-an-id"}},
	}

	// Malformed IDs are the format validator's finding, not coverage's.
	diags, _ := CheckCoverage(m)
	assert.Empty(t, diags)
}
