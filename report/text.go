package report

import (
	"fmt"
	"io"

	"github.com/c360studio/goldenthread/trace"
)

// WriteText renders a terminal summary: per-service status lines, then
// diagnostics grouped under each failing or flagged service.
func WriteText(w io.Writer, result *trace.ValidationResult) error {
	for _, svc := range result.Services {
		status := "PASS"
		switch {
		case svc.Fatal:
			status = "FATAL"
		case !svc.Pass:
			status = "FAIL"
		}
		fmt.Fprintf(w, "%-6s %s  coverage %.1f%% (%d/%d requirements, %d/%d symbols mapped)\n",
			status, svc.Service, svc.Coverage.Percentage,
			svc.Coverage.CoveredIDs, svc.Coverage.RequiredIDs,
			svc.Coverage.MappedSymbols, svc.Coverage.TotalSymbols)

		for _, d := range svc.Diagnostics {
			fmt.Fprintf(w, "  [%s] %s: %s\n", d.Severity, d.Code, d.Message)
			if d.Hint != "" {
				fmt.Fprintf(w, "      hint: %s\n", indentContinuation(d.Hint))
			}
			for _, s := range d.Suggestions {
				fmt.Fprintf(w, "      did you mean: %s\n", s)
			}
		}
	}

	verdict := "PASS"
	if !result.Pass {
		verdict = "FAIL"
	}
	fmt.Fprintf(w, "\n%s: %d service(s), %d blocking, %d advisory, coverage %.1f%%\n",
		verdict, len(result.Services),
		result.BlockingCount(), result.AdvisoryCount(),
		result.Coverage.Percentage)
	return nil
}

// indentContinuation keeps multi-line hints (manifest snippets) aligned
// under their label.
func indentContinuation(s string) string {
	out := ""
	for i, r := range s {
		out += string(r)
		if r == '\n' && i < len(s)-1 {
			out += "      "
		}
	}
	return out
}
