// Package validate implements the traceability validators: coverage,
// orphan detection, and registry consistency. Validators are pure
// functions over a manifest, extracted symbols, and resolved registry
// records, so they compose and test in isolation.
package validate

import (
	"fmt"

	"github.com/c360studio/goldenthread/manifest"
	"github.com/c360studio/goldenthread/registry"
	"github.com/c360studio/goldenthread/trace"
)

// CheckCoverage verifies the downward half of the golden thread: every
// feature links to business and user requirements, and every declared
// requirement has at least one symbol implementing it.
func CheckCoverage(m *manifest.Manifest) ([]trace.Diagnostic, trace.CoverageStats) {
	var diags []trace.Diagnostic

	for _, feat := range m.Features {
		if !trace.ValidID(feat.ID) {
			// Malformed feature IDs are reported by the consistency
			// validator; skip the structural checks here.
			continue
		}
		if len(feat.BusinessRequirements) == 0 {
			d := trace.New(trace.CodeMissingBR, feat.ID,
				fmt.Sprintf("feature %s declares no business requirements", feat.ID))
			d.Hint = "add business_requirements linking this feature to at least one BR"
			diags = append(diags, d)
		}
		if len(feat.UserRequirements) == 0 {
			d := trace.New(trace.CodeMissingUR, feat.ID,
				fmt.Sprintf("feature %s declares no user requirements", feat.ID))
			d.Hint = "add user_requirements linking this feature to at least one UR"
			diags = append(diags, d)
		}
		if len(feat.CallFlows) == 0 {
			d := trace.New(trace.CodeMissingCF, feat.ID,
				fmt.Sprintf("feature %s declares no call flows", feat.ID))
			diags = append(diags, d)
		}
	}

	required := m.RequirementIDs()
	mapped := m.MappedRequirementIDs()
	for _, id := range required {
		if !mapped[id] {
			d := trace.New(trace.CodeMissingFR, id,
				fmt.Sprintf("requirement %s has no symbol mapping", id))
			d.Hint = "map at least one symbol to this requirement under traceability.symbols"
			diags = append(diags, d)
		}
	}

	stats := coverageStats(required, mapped)
	return diags, stats
}

// CheckResolvedLinks re-checks each feature's declared links after registry
// resolution. A feature whose every declared business requirement fails to
// resolve is as unlinked as one that declares none, so it gets the same
// MISSING_* diagnostic on top of the per-ID INVALID_ID findings.
func CheckResolvedLinks(m *manifest.Manifest, res *registry.Resolution) []trace.Diagnostic {
	var diags []trace.Diagnostic

	for _, feat := range m.Features {
		if !trace.ValidID(feat.ID) {
			continue
		}
		if noneResolve(feat.BusinessRequirements, res) {
			d := trace.New(trace.CodeMissingBR, feat.ID,
				fmt.Sprintf("feature %s has no resolvable business requirement", feat.ID))
			d.Hint = "every declared BR failed to resolve; fix the IDs or create the registry records"
			diags = append(diags, d)
		}
		if noneResolve(feat.UserRequirements, res) {
			d := trace.New(trace.CodeMissingUR, feat.ID,
				fmt.Sprintf("feature %s has no resolvable user requirement", feat.ID))
			d.Hint = "every declared UR failed to resolve; fix the IDs or create the registry records"
			diags = append(diags, d)
		}
		if noneResolve(feat.CallFlows, res) {
			diags = append(diags, trace.New(trace.CodeMissingCF, feat.ID,
				fmt.Sprintf("feature %s has no resolvable call flow", feat.ID)))
		}
	}

	return diags
}

// noneResolve reports whether ids is non-empty and not one of them
// resolved. An empty list is the structural check's finding, not this one.
func noneResolve(ids []string, res *registry.Resolution) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if res.Has(id) {
			return false
		}
	}
	return true
}

func coverageStats(required []string, mapped map[string]bool) trace.CoverageStats {
	// Symbol counts come from extraction; the runner fills them in.
	stats := trace.CoverageStats{
		RequiredIDs: len(required),
		CoveredIDs:  len(mapped),
	}
	stats.Recompute()
	return stats
}
