package extract_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/goldenthread/extract"
	_ "github.com/c360studio/goldenthread/extract/golang"
	_ "github.com/c360studio/goldenthread/extract/python"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestExtract_MultiLanguage(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"api/server.go":    "package api\n\nfunc Serve() {}\n",
		"jobs/runner.py":   "def run_job(job):\n    return job\n",
		"docs/readme.md":   "# not source\n",
		"vendor/dep.go":    "package dep\n\nfunc Hidden() {}\n",
		".hidden/x.go":     "package x\n\nfunc AlsoHidden() {}\n",
	})

	result, err := extract.NewExtractor(root).Extract(context.Background())
	require.NoError(t, err)
	require.Empty(t, result.ParseErrors)

	paths := make([]string, len(result.Symbols))
	for i, sym := range result.Symbols {
		paths[i] = sym.QualifiedPath()
	}
	assert.Equal(t, []string{"api/server.go::Serve", "jobs/runner.py::run_job"}, paths)
}

func TestExtract_ParseErrorContinues(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"good.go": "package good\n\nfunc Fine() {}\n",
		"bad.go":  "package bad\n\nfunc Broken( {\n",
	})

	result, err := extract.NewExtractor(root).Extract(context.Background())
	require.NoError(t, err)

	require.Len(t, result.ParseErrors, 1)
	assert.Equal(t, "bad.go", result.ParseErrors[0].File)

	require.Len(t, result.Symbols, 1)
	assert.Equal(t, "good.go::Fine", result.Symbols[0].QualifiedPath())
}

func TestExtract_Exclusions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app.py":          "def main():\n    pass\n",
		"test_app.py":     "def test_main():\n    pass\n",
		"gen/schema.py":   "def generated():\n    pass\n",
	})

	result, err := extract.NewExtractor(root,
		extract.WithExclusions([]string{"**/test_*.py", "gen/**"}),
	).Extract(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Symbols, 1)
	assert.Equal(t, "app.py::main", result.Symbols[0].QualifiedPath())
}

func TestExtract_LanguageFilter(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.go": "package a\n\nfunc A() {}\n",
		"b.py": "def b():\n    pass\n",
	})

	result, err := extract.NewExtractor(root,
		extract.WithLanguages([]string{"go"}),
	).Extract(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Symbols, 1)
	assert.Equal(t, "a.go::A", result.Symbols[0].QualifiedPath())
}

func TestExtract_DeterministicOrder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"z.go": "package z\n\nfunc Z() {}\n",
		"a.go": "package a\n\nfunc Second() {}\n\nfunc First() {}\n",
	})

	var first []string
	for run := 0; run < 3; run++ {
		result, err := extract.NewExtractor(root, extract.WithWorkers(4)).Extract(context.Background())
		require.NoError(t, err)

		paths := make([]string, len(result.Symbols))
		for i, sym := range result.Symbols {
			paths[i] = sym.QualifiedPath()
		}
		if run == 0 {
			first = paths
			assert.Equal(t, []string{"a.go::Second", "a.go::First", "z.go::Z"}, paths)
		} else {
			assert.Equal(t, first, paths)
		}
	}
}

func TestMatchesAny(t *testing.T) {
	assert.True(t, extract.MatchesAny([]string{"**/test_*.py"}, "pkg/test_app.py"))
	// "**/" patterns also match files at the root.
	assert.True(t, extract.MatchesAny([]string{"**/test_*.py"}, "test_app.py"))
	assert.True(t, extract.MatchesAny([]string{"gen/**"}, "gen/deep/file.py"))
	assert.False(t, extract.MatchesAny([]string{"gen/**"}, "src/file.py"))
	assert.False(t, extract.MatchesAny(nil, "anything.py"))
}
