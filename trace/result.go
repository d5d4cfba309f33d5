package trace

import (
	"sort"
	"time"
)

// CoverageStats summarizes requirement coverage for one service or a run.
type CoverageStats struct {
	// RequiredIDs is the count of requirement IDs declared as needing code.
	RequiredIDs int `json:"required_ids"`
	// CoveredIDs is the count that both resolve correctly and have at
	// least one mapped symbol.
	CoveredIDs int `json:"covered_ids"`
	// Percentage is CoveredIDs / RequiredIDs * 100, or 0 when nothing is
	// declared.
	Percentage float64 `json:"percentage"`

	TotalSymbols  int `json:"total_symbols"`
	MappedSymbols int `json:"mapped_symbols"`
}

// Recompute refreshes Percentage from the counters.
func (c *CoverageStats) Recompute() {
	if c.RequiredIDs > 0 {
		c.Percentage = float64(c.CoveredIDs) / float64(c.RequiredIDs) * 100
	} else {
		c.Percentage = 0
	}
}

// ServiceResult holds one service's diagnostics and coverage. Per-service
// results are independent: a fatal manifest error here never suppresses
// diagnostics computed for other services.
type ServiceResult struct {
	Service     string        `json:"service"`
	Pass        bool          `json:"pass"`
	Fatal       bool          `json:"fatal,omitempty"`
	Coverage    CoverageStats `json:"coverage"`
	Diagnostics []Diagnostic  `json:"diagnostics"`
}

// ValidationResult is the aggregated, machine-readable outcome of a run.
type ValidationResult struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	ToolVersion string          `json:"tool_version"`
	Strict      bool            `json:"strict"`
	Pass        bool            `json:"pass"`
	Coverage    CoverageStats   `json:"coverage"`
	Services    []ServiceResult `json:"services"`
}

// Finalize merges per-service outcomes into the overall result: strict-mode
// promotion, the documented stable sort, per-service and overall pass flags,
// and aggregate coverage. Call it after all service workers have completed;
// it is safe to call again after filtering diagnostics.
func (r *ValidationResult) Finalize(strict bool) {
	r.Strict = strict

	sort.SliceStable(r.Services, func(i, j int) bool {
		return r.Services[i].Service < r.Services[j].Service
	})

	r.Pass = true
	r.Coverage = CoverageStats{}

	for i := range r.Services {
		svc := &r.Services[i]

		if strict {
			for j := range svc.Diagnostics {
				if svc.Diagnostics[j].Severity == SeverityAdvisory {
					svc.Diagnostics[j].Severity = SeverityBlocking
				}
			}
		}
		SortDiagnostics(svc.Diagnostics)

		svc.Pass = !svc.Fatal
		for _, d := range svc.Diagnostics {
			if d.Severity == SeverityBlocking {
				svc.Pass = false
				break
			}
		}
		if !svc.Pass {
			r.Pass = false
		}

		r.Coverage.RequiredIDs += svc.Coverage.RequiredIDs
		r.Coverage.CoveredIDs += svc.Coverage.CoveredIDs
		r.Coverage.TotalSymbols += svc.Coverage.TotalSymbols
		r.Coverage.MappedSymbols += svc.Coverage.MappedSymbols
	}
	r.Coverage.Recompute()
}

// FilterCodes drops every diagnostic whose code is not in keep. Callers
// re-run Finalize afterwards so pass flags and counts match the filtered
// set.
func (r *ValidationResult) FilterCodes(keep ...Code) {
	set := make(map[Code]bool, len(keep))
	for _, c := range keep {
		set[c] = true
	}
	for i := range r.Services {
		kept := r.Services[i].Diagnostics[:0]
		for _, d := range r.Services[i].Diagnostics {
			if set[d.Code] {
				kept = append(kept, d)
			}
		}
		r.Services[i].Diagnostics = kept
	}
}

// BlockingCount returns the number of blocking diagnostics across services.
func (r *ValidationResult) BlockingCount() int {
	n := 0
	for _, svc := range r.Services {
		for _, d := range svc.Diagnostics {
			if d.Severity == SeverityBlocking {
				n++
			}
		}
	}
	return n
}

// AdvisoryCount returns the number of advisory diagnostics across services.
func (r *ValidationResult) AdvisoryCount() int {
	n := 0
	for _, svc := range r.Services {
		for _, d := range svc.Diagnostics {
			if d.Severity == SeverityAdvisory {
				n++
			}
		}
	}
	return n
}
