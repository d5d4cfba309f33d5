package trace

import "sort"

// Code identifies a diagnostic category from the fixed taxonomy.
type Code string

const (
	// CodeParseError marks a source file that failed to parse. Extraction
	// continues with the remaining files.
	CodeParseError Code = "PARSE_ERROR"

	// CodeManifestSchema marks a structurally invalid manifest. Fatal for
	// the owning service only.
	CodeManifestSchema Code = "MANIFEST_SCHEMA_ERROR"

	CodeMissingBR Code = "MISSING_BR"
	CodeMissingUR Code = "MISSING_UR"
	CodeMissingFR Code = "MISSING_FR"
	CodeMissingCF Code = "MISSING_CF"
	CodeMissingV  Code = "MISSING_V"
	CodeMissingTC Code = "MISSING_TC"
	CodeMissingEA Code = "MISSING_EA"

	// CodeOrphanCode marks an extracted symbol with no manifest mapping.
	CodeOrphanCode Code = "ORPHAN_CODE"
	// CodeOrphanManifest marks a manifest mapping with no matching symbol.
	CodeOrphanManifest Code = "ORPHAN_MANIFEST"

	// CodeInvalidID marks an ID that does not resolve, or resolves to a
	// record of the wrong registry type.
	CodeInvalidID Code = "INVALID_ID"
	// CodeInvalidFormat marks a syntactically malformed ID.
	CodeInvalidFormat Code = "INVALID_FORMAT"
)

// Severity distinguishes diagnostics that fail the run from advisory ones.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityAdvisory Severity = "advisory"
)

// DefaultSeverity returns the severity a code carries before any strict-mode
// promotion. MISSING_CF is advisory: a feature without a call flow is worth
// flagging but does not break the golden thread.
func DefaultSeverity(code Code) Severity {
	switch code {
	case CodeParseError, CodeOrphanCode, CodeOrphanManifest, CodeMissingCF:
		return SeverityAdvisory
	default:
		return SeverityBlocking
	}
}

// Diagnostic is one validator finding.
type Diagnostic struct {
	// Code is the taxonomy code.
	Code Code `json:"code"`

	// Severity decides pass/fail. Strict mode promotes advisory to blocking.
	Severity Severity `json:"severity"`

	// Service is the owning service name.
	Service string `json:"service,omitempty"`

	// Subject is the entity the diagnostic is about: a requirement ID, a
	// qualified symbol path, or a file path.
	Subject string `json:"subject,omitempty"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Hint suggests a resolution, when one is known.
	Hint string `json:"hint,omitempty"`

	// Suggestions carries fuzzy-match candidates for orphaned manifest
	// entries (possible renames or moves).
	Suggestions []string `json:"suggestions,omitempty"`
}

// New builds a diagnostic with the code's default severity.
func New(code Code, subject, message string) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: DefaultSeverity(code),
		Subject:  subject,
		Message:  message,
	}
}

// SortDiagnostics applies the documented stable order: code, then subject,
// then message. Applied once, after all workers complete, so output is
// reproducible across runs.
func SortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Code != diags[j].Code {
			return diags[i].Code < diags[j].Code
		}
		if diags[i].Subject != diags[j].Subject {
			return diags[i].Subject < diags[j].Subject
		}
		return diags[i].Message < diags[j].Message
	})
}
