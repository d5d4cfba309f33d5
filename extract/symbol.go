// Package extract walks service source trees and produces line-addressable
// code symbols. Language parsers register themselves in DefaultRegistry via
// init() and are selected by file extension; adding a language means adding
// a parser package, not branching on type names.
package extract

import (
	"fmt"
	"sort"
)

// Kind classifies a code symbol.
type Kind string

const (
	KindModule    Kind = "module"
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindInterface Kind = "interface"
	KindType      Kind = "type"
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
)

// Symbol is one addressable code declaration. Identity is the qualified
// path; symbols are produced fresh on every extraction run and never
// persisted.
type Symbol struct {
	// Name is the declaration identifier.
	Name string `json:"name"`

	// Kind classifies the declaration.
	Kind Kind `json:"kind"`

	// File is the source path relative to the service root, with forward
	// slashes.
	File string `json:"file"`

	// Parent is the enclosing class/struct name for methods, empty
	// otherwise.
	Parent string `json:"parent,omitempty"`

	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// QualifiedPath returns the symbol path in manifest format:
// "auth/oauth.py::OAuthProvider.authenticate" for a method,
// "utils/helpers.py::format_date" for a top-level declaration.
func (s Symbol) QualifiedPath() string {
	if s.Parent != "" {
		return fmt.Sprintf("%s::%s.%s", s.File, s.Parent, s.Name)
	}
	return fmt.Sprintf("%s::%s", s.File, s.Name)
}

// ParseError records a source file that could not be parsed. The file
// contributes zero symbols; extraction continues with the remaining files.
type ParseError struct {
	File string `json:"file"`
	Err  string `json:"error"`
}

// Result is the outcome of one extraction run.
type Result struct {
	// Symbols is deterministically ordered: file path, start line, name.
	Symbols []Symbol

	// ParseErrors lists files that failed to parse, ordered by file path.
	ParseErrors []ParseError
}

// sortSymbols applies the deterministic ordering so downstream diffs are
// reproducible across runs on unchanged input.
func sortSymbols(symbols []Symbol) {
	sort.SliceStable(symbols, func(i, j int) bool {
		if symbols[i].File != symbols[j].File {
			return symbols[i].File < symbols[j].File
		}
		if symbols[i].StartLine != symbols[j].StartLine {
			return symbols[i].StartLine < symbols[j].StartLine
		}
		return symbols[i].QualifiedPath() < symbols[j].QualifiedPath()
	})
}
