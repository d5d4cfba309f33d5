package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/goldenthread/trace"
)

func sampleResult() *trace.ValidationResult {
	result := &trace.ValidationResult{
		RunID:       "run-123",
		GeneratedAt: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		ToolVersion: "0.1.0",
		Services: []trace.ServiceResult{
			{
				Service: "auth",
				Coverage: trace.CoverageStats{
					RequiredIDs: 4, CoveredIDs: 3,
					TotalSymbols: 10, MappedSymbols: 7,
				},
				Diagnostics: []trace.Diagnostic{
					trace.New(trace.CodeMissingFR, "FR-AUTH-004", "requirement FR-AUTH-004 has no symbol mapping"),
					trace.New(trace.CodeOrphanCode, "oauth.py::helper", "symbol oauth.py::helper has no manifest mapping"),
				},
			},
		},
	}
	result.Finalize(false)
	return result
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResult()))

	var report Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))

	assert.Equal(t, "run-123", report.Metadata.RunID)
	assert.Equal(t, SchemaVersion, report.Metadata.SchemaVersion)
	assert.Equal(t, "0.1.0", report.Metadata.ToolVersion)
	assert.False(t, report.Metadata.Strict)

	assert.False(t, report.Summary.Pass)
	assert.Equal(t, 1, report.Summary.Blocking)
	assert.Equal(t, 1, report.Summary.Advisory)
	assert.Equal(t, 1, report.Summary.Services)
	assert.InDelta(t, 75.0, report.Summary.Coverage.Percentage, 0.001)

	require.Len(t, report.Services, 1)
	assert.Equal(t, "auth", report.Services[0].Service)
	require.Len(t, report.Services[0].Diagnostics, 2)
}

func TestWriteJSONFile_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "nested", "out.json")
	require.NoError(t, WriteJSONFile(path, sampleResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "run-123", report.Metadata.RunID)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "auth")
	assert.Contains(t, out, "MISSING_FR")
	assert.Contains(t, out, "ORPHAN_CODE")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "1 blocking, 1 advisory")
}

func TestWriteText_Pass(t *testing.T) {
	result := &trace.ValidationResult{
		Services: []trace.ServiceResult{{Service: "auth"}},
	}
	result.Finalize(false)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, result))
	assert.Contains(t, buf.String(), "PASS")
}
