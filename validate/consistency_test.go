package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/goldenthread/manifest"
	"github.com/c360studio/goldenthread/registry"
	"github.com/c360studio/goldenthread/trace"
)

func TestCheckFormat(t *testing.T) {
	m := &manifest.Manifest{
		Service: "auth",
		Version: "1.0",
		Symbols: []manifest.SymbolMapping{{
			Path: "a.py::f",
			Kind: "function",
			IDs:  []string{"FR-AUTH-001", "fr-auth-002", "ZZ-AUTH-003"},
		}},
	}

	valid, diags := CheckFormat(m)
	assert.Equal(t, []string{"FR-AUTH-001"}, valid)

	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, trace.CodeInvalidFormat, d.Code)
		assert.Equal(t, trace.SeverityBlocking, d.Severity)
	}
}

func resolution(records ...*registry.Record) *registry.Resolution {
	res := &registry.Resolution{
		Records: make(map[string]*registry.Record),
		Missing: make(map[string]bool),
	}
	for _, r := range records {
		res.Records[r.ID] = r
	}
	return res
}

func TestCheckConsistency_MissingID(t *testing.T) {
	res := resolution()
	res.Missing["FR-AUTH-404"] = true

	diags := CheckConsistency(res)
	d, ok := diagFor(diags, trace.CodeInvalidID, "FR-AUTH-404")
	require.True(t, ok)
	assert.Equal(t, trace.SeverityBlocking, d.Severity)
	assert.NotEmpty(t, d.Hint)
}

func TestCheckConsistency_RequirementNeedsVerification(t *testing.T) {
	res := resolution(
		&registry.Record{ID: "FR-AUTH-001", Type: trace.TypeFR},
		&registry.Record{
			ID:   "FR-AUTH-002",
			Type: trace.TypeFR,
			Related: map[string][]string{
				"verifications": {"V-AUTH-001"},
			},
		},
	)

	diags := CheckConsistency(res)
	_, ok := diagFor(diags, trace.CodeMissingV, "FR-AUTH-001")
	assert.True(t, ok)
	_, ok = diagFor(diags, trace.CodeMissingV, "FR-AUTH-002")
	assert.False(t, ok)
}

func TestCheckConsistency_VerificationNeedsTestCase(t *testing.T) {
	res := resolution(&registry.Record{
		ID:     "V-AUTH-001",
		Type:   trace.TypeV,
		Status: "Draft",
	})

	diags := CheckConsistency(res)
	_, ok := diagFor(diags, trace.CodeMissingTC, "V-AUTH-001")
	assert.True(t, ok)
	// Not Verified, so no evidence requirement yet.
	_, ok = diagFor(diags, trace.CodeMissingEA, "V-AUTH-001")
	assert.False(t, ok)
}

func TestCheckConsistency_VerifiedNeedsEvidence(t *testing.T) {
	res := resolution(&registry.Record{
		ID:     "V-AUTH-001",
		Type:   trace.TypeV,
		Status: registry.StatusVerified,
		Related: map[string][]string{
			"test_cases": {"TC-AUTH-001"},
		},
	})

	diags := CheckConsistency(res)
	d, ok := diagFor(diags, trace.CodeMissingEA, "V-AUTH-001")
	require.True(t, ok)
	assert.Equal(t, trace.SeverityBlocking, d.Severity)

	_, ok = diagFor(diags, trace.CodeMissingTC, "V-AUTH-001")
	assert.False(t, ok)
}

func TestCheckConsistency_VerifiedStatusCaseInsensitive(t *testing.T) {
	res := resolution(&registry.Record{
		ID:     "V-AUTH-001",
		Type:   trace.TypeV,
		Status: "verified",
		Related: map[string][]string{
			"test_cases": {"TC-AUTH-001"},
		},
	})

	diags := CheckConsistency(res)
	_, ok := diagFor(diags, trace.CodeMissingEA, "V-AUTH-001")
	assert.True(t, ok, "lowercase status must not skip the evidence rule")
}

func TestCheckConsistency_VerifiedWithEvidenceClean(t *testing.T) {
	res := resolution(&registry.Record{
		ID:     "V-AUTH-001",
		Type:   trace.TypeV,
		Status: registry.StatusVerified,
		Related: map[string][]string{
			"test_cases": {"TC-AUTH-001"},
			"evidence":   {"EA-AUTH-001"},
		},
	})

	assert.Empty(t, CheckConsistency(res))
}

func TestChainLinks(t *testing.T) {
	// Feature records link to requirements, requirement records to
	// verifications; each hop surfaces exactly the unseen IDs.
	res := resolution(&registry.Record{
		ID:   "FEAT-AUTH-001",
		Type: trace.TypeFEAT,
		Related: map[string][]string{
			"requirements": {"FR-AUTH-001"},
			"call_flows":   {"CF-AUTH-001"}, // not traversed
		},
	})
	assert.Equal(t, []string{"FR-AUTH-001"}, chainLinks(res))

	res.Records["FR-AUTH-001"] = &registry.Record{
		ID:   "FR-AUTH-001",
		Type: trace.TypeFR,
		Related: map[string][]string{
			"verifications": {"V-AUTH-001"},
		},
	}
	assert.Equal(t, []string{"V-AUTH-001"}, chainLinks(res))

	res.Records["V-AUTH-001"] = &registry.Record{ID: "V-AUTH-001", Type: trace.TypeV}
	assert.Empty(t, chainLinks(res), "a fully walked chain needs no more batches")
}

func TestCheckConsistency_TypeMismatch(t *testing.T) {
	// The registry returned a record, but of the wrong type for the prefix.
	res := resolution(&registry.Record{ID: "FR-AUTH-001", Type: trace.TypeBR})

	diags := CheckConsistency(res)
	d, ok := diagFor(diags, trace.CodeInvalidID, "FR-AUTH-001")
	require.True(t, ok)
	assert.Contains(t, d.Message, "expected FR")
}
