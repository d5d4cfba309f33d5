// Package report renders validation results for humans and for CI: a JSON
// document, a terminal summary, and optional push-gateway metrics.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/goldenthread/trace"
)

// SchemaVersion identifies the JSON report layout for downstream parsers.
const SchemaVersion = "1.0"

// Metadata identifies one report.
type Metadata struct {
	RunID         string    `json:"run_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	SchemaVersion string    `json:"schema_version"`
	ToolVersion   string    `json:"tool_version"`
	Strict        bool      `json:"strict"`
}

// Summary is the CI-facing rollup: one glance says pass or fail and how
// much of the thread is covered.
type Summary struct {
	Pass      bool                `json:"pass"`
	Blocking  int                 `json:"blocking"`
	Advisory  int                 `json:"advisory"`
	Coverage  trace.CoverageStats `json:"coverage"`
	Services  int                 `json:"services"`
}

// Report is the full JSON document.
type Report struct {
	Metadata Metadata              `json:"metadata"`
	Summary  Summary               `json:"summary"`
	Services []trace.ServiceResult `json:"services"`
}

// Build assembles a Report from a finalized validation result.
func Build(result *trace.ValidationResult) *Report {
	return &Report{
		Metadata: Metadata{
			RunID:         result.RunID,
			GeneratedAt:   result.GeneratedAt,
			SchemaVersion: SchemaVersion,
			ToolVersion:   result.ToolVersion,
			Strict:        result.Strict,
		},
		Summary: Summary{
			Pass:     result.Pass,
			Blocking: result.BlockingCount(),
			Advisory: result.AdvisoryCount(),
			Coverage: result.Coverage,
			Services: len(result.Services),
		},
		Services: result.Services,
	}
}

// WriteJSON renders the report as indented JSON.
func WriteJSON(w io.Writer, result *trace.ValidationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Build(result)); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteJSONFile writes the report to path, creating parent directories.
func WriteJSONFile(path string, result *trace.ValidationResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := WriteJSON(f, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
