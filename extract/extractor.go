package extract

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// Extractor walks a source tree and extracts symbols with every registered
// language parser whose extension matches. Extraction is embarrassingly
// parallel: each file is parsed independently and workers communicate
// results back through return values.
type Extractor struct {
	root      string
	registry  *ParserRegistry
	exclude   []string
	languages map[string]bool // parser names to run; empty = all
	workers   int
	logger    *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRegistry overrides the parser registry (used in tests).
func WithRegistry(r *ParserRegistry) Option {
	return func(e *Extractor) { e.registry = r }
}

// WithExclusions sets doublestar glob patterns matched against
// root-relative file paths; matching files are skipped.
func WithExclusions(patterns []string) Option {
	return func(e *Extractor) { e.exclude = patterns }
}

// WithLanguages restricts extraction to the named parsers.
func WithLanguages(names []string) Option {
	return func(e *Extractor) {
		e.languages = make(map[string]bool, len(names))
		for _, n := range names {
			e.languages[n] = true
		}
	}
}

// WithWorkers bounds the parse worker pool.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// NewExtractor creates an extractor rooted at root.
func NewExtractor(root string, opts ...Option) *Extractor {
	e := &Extractor{
		root:     root,
		registry: DefaultRegistry,
		workers:  runtime.GOMAXPROCS(0),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// skipDirs are directory names never descended into, in addition to hidden
// directories.
var skipDirs = map[string]bool{
	"vendor": true, "node_modules": true, "__pycache__": true,
	"venv": true, "env": true, "dist": true, "build": true,
	"site-packages": true, ".tox": true, ".eggs": true,
}

// Extract walks the tree and parses every matching file. A file that fails
// to parse contributes zero symbols and one parse error; the run continues.
// The returned symbol set is deterministically ordered.
func (e *Extractor) Extract(ctx context.Context) (*Result, error) {
	files, err := e.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	type fileOutcome struct {
		symbols []Symbol
		err     error
	}
	outcomes := make([]fileOutcome, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, relPath := range files {
		i, relPath := i, relPath
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			parser, err := e.parserFor(filepath.Ext(relPath))
			if err != nil {
				return err
			}

			symbols, err := parser.ParseFile(ctx, filepath.Join(e.root, filepath.FromSlash(relPath)))
			if err != nil {
				e.logger.Warn("File failed to parse, continuing",
					"file", relPath, "error", err)
				outcomes[i] = fileOutcome{err: err}
				return nil
			}
			outcomes[i] = fileOutcome{symbols: symbols}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	for i, outcome := range outcomes {
		if outcome.err != nil {
			result.ParseErrors = append(result.ParseErrors, ParseError{
				File: files[i],
				Err:  outcome.err.Error(),
			})
			continue
		}
		result.Symbols = append(result.Symbols, outcome.symbols...)
	}

	sortSymbols(result.Symbols)
	sort.Slice(result.ParseErrors, func(i, j int) bool {
		return result.ParseErrors[i].File < result.ParseErrors[j].File
	})

	e.logger.Debug("Extraction complete",
		"root", e.root,
		"files", len(files),
		"symbols", len(result.Symbols),
		"parse_errors", len(result.ParseErrors))

	return result, nil
}

// discoverFiles returns root-relative paths of parseable files, sorted.
func (e *Extractor) discoverFiles() ([]string, error) {
	var files []string

	err := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		base := d.Name()
		if d.IsDir() {
			if path == e.root {
				return nil
			}
			if skipDirs[base] || strings.HasPrefix(base, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		name, ok := e.registry.ParserNameForExtension(filepath.Ext(base))
		if !ok {
			return nil
		}
		if len(e.languages) > 0 && !e.languages[name] {
			return nil
		}

		rel, err := filepath.Rel(e.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if MatchesAny(e.exclude, rel) {
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// parserFor creates a parser for an extension. Instances are per-call:
// tree-sitter parsers are not safe for concurrent use, so each worker gets
// its own.
func (e *Extractor) parserFor(ext string) (FileParser, error) {
	name, ok := e.registry.ParserNameForExtension(ext)
	if !ok {
		return nil, fmt.Errorf("no parser registered for extension: %s", ext)
	}
	return e.registry.CreateParser(name, e.root)
}

// MatchesAny reports whether a root-relative, slash-separated path matches
// any of the doublestar patterns. Patterns with a "**/" prefix also match
// at the root level, mirroring how the manifest exclusion globs are
// written.
func MatchesAny(patterns []string, relPath string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
		if rest, found := strings.CutPrefix(pattern, "**/"); found {
			if ok, err := doublestar.Match(rest, relPath); err == nil && ok {
				return true
			}
		}
	}
	return false
}
