package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/c360studio/goldenthread/manifest"
	"github.com/c360studio/goldenthread/registry"
	"github.com/c360studio/goldenthread/trace"
)

// CheckFormat validates every raw ID string in the manifest against the
// canonical syntax. Runs before registry resolution so malformed IDs never
// reach the network.
func CheckFormat(m *manifest.Manifest) (valid []string, diags []trace.Diagnostic) {
	for _, id := range m.AllIDStrings() {
		if err := trace.CheckID(id); err != nil {
			diags = append(diags, trace.New(trace.CodeInvalidFormat, id, err.Error()))
			continue
		}
		valid = append(valid, id)
	}
	return valid, diags
}

// resolveChain resolves the given IDs and then walks the registry links the
// consistency rules traverse: feature records link to requirements,
// requirement records link to verifications. Each hop is one extra batch,
// so a Verified verification reachable only through a requirement still
// gets its evidence checked.
func resolveChain(ctx context.Context, client *registry.Client, ids []string) (*registry.Resolution, error) {
	res, err := client.ResolveMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for {
		next := chainLinks(res)
		if len(next) == 0 {
			return res, nil
		}
		more, err := client.ResolveMany(ctx, next)
		if err != nil {
			return nil, err
		}
		res.Merge(more)
	}
}

// chainLinks returns linked IDs the chain rules still need: requirements
// linked from feature records, verifications linked from requirement
// records. IDs already looked up are not returned, so the expansion
// terminates.
func chainLinks(res *registry.Resolution) []string {
	next := make(map[string]bool)
	for _, record := range res.Records {
		var follow func(trace.IDType) bool
		switch {
		case record.Type == trace.TypeFEAT:
			follow = trace.IsRequirement
		case trace.IsRequirement(record.Type):
			follow = func(t trace.IDType) bool { return t == trace.TypeV }
		default:
			continue
		}
		for _, id := range record.RelatedAll() {
			if t, ok := trace.TypeOf(id); ok && follow(t) && !res.Seen(id) {
				next[id] = true
			}
		}
	}

	ids := make([]string, 0, len(next))
	for id := range next {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CheckConsistency verifies the upward half of the golden thread against
// resolved registry records: every referenced ID exists, every requirement
// has a verification, every verification has a test case, and a Verified
// verification has evidence.
func CheckConsistency(res *registry.Resolution) []trace.Diagnostic {
	var diags []trace.Diagnostic

	for id := range res.Missing {
		d := trace.New(trace.CodeInvalidID, id,
			fmt.Sprintf("ID %s does not exist in the registry", id))
		d.Hint = "check for a typo, or create the registry record before referencing it"
		diags = append(diags, d)
	}

	for id, record := range res.Records {
		idType, _ := trace.TypeOf(id)
		if record.Type != idType {
			diags = append(diags, trace.New(trace.CodeInvalidID, id,
				fmt.Sprintf("ID %s resolved to a %s record, expected %s", id, record.Type, idType)))
			continue
		}

		switch {
		case trace.IsRequirement(idType):
			if !hasRelatedOfType(record, trace.TypeV) {
				d := trace.New(trace.CodeMissingV, id,
					fmt.Sprintf("requirement %s has no linked verification", id))
				d.Hint = "link a V record to this requirement in the registry"
				diags = append(diags, d)
			}
		case idType == trace.TypeV:
			if !hasRelatedOfType(record, trace.TypeTC) {
				d := trace.New(trace.CodeMissingTC, id,
					fmt.Sprintf("verification %s has no linked test case", id))
				d.Hint = "link a TC record to this verification in the registry"
				diags = append(diags, d)
			}
			if strings.EqualFold(record.Status, registry.StatusVerified) && !hasRelatedOfType(record, trace.TypeEA) {
				d := trace.New(trace.CodeMissingEA, id,
					fmt.Sprintf("verification %s is marked Verified but has no evidence artifact", id))
				d.Hint = "attach an EA record, or revert the verification status"
				diags = append(diags, d)
			}
		}
	}

	return diags
}

// hasRelatedOfType reports whether any related ID on the record carries the
// given type prefix.
func hasRelatedOfType(record *registry.Record, want trace.IDType) bool {
	for _, id := range record.RelatedAll() {
		if t, ok := trace.TypeOf(id); ok && t == want {
			return true
		}
	}
	return false
}
