package extract

import (
	"context"
	"fmt"
	"sync"
)

// FileParser is the single capability every language implements:
// parse one file, return its symbols. Paths in returned symbols are
// relative to the parser's configured root.
type FileParser interface {
	ParseFile(ctx context.Context, filePath string) ([]Symbol, error)
}

// ParserFactory creates a FileParser rooted at the given directory.
type ParserFactory func(root string) FileParser

// ParserRegistry maps languages and file extensions to parser factories.
// Thread-safe for concurrent access.
type ParserRegistry struct {
	mu      sync.RWMutex
	parsers map[string]ParserFactory // name → factory
	extMap  map[string]string        // extension → parser name
}

// NewParserRegistry creates an empty parser registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		parsers: make(map[string]ParserFactory),
		extMap:  make(map[string]string),
	}
}

// Register adds a parser factory for the given extensions.
// Extensions include the leading dot (".go", ".py"). The first
// registration wins on extension conflict.
func (r *ParserRegistry) Register(name string, extensions []string, factory ParserFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parsers[name] = factory
	for _, ext := range extensions {
		if _, exists := r.extMap[ext]; !exists {
			r.extMap[ext] = name
		}
	}
}

// ParserNameForExtension returns the parser name registered for a file
// extension.
func (r *ParserRegistry) ParserNameForExtension(ext string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.extMap[ext]
	return name, ok
}

// CreateParser instantiates a parser by name rooted at root.
func (r *ParserRegistry) CreateParser(name, root string) (FileParser, error) {
	r.mu.RLock()
	factory, ok := r.parsers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("parser not registered: %s", name)
	}
	return factory(root), nil
}

// ListParsers returns all registered parser names.
func (r *ParserRegistry) ListParsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	return names
}

// ListExtensions returns all registered file extensions.
func (r *ParserRegistry) ListExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	extensions := make([]string, 0, len(r.extMap))
	for ext := range r.extMap {
		extensions = append(extensions, ext)
	}
	return extensions
}

// DefaultRegistry is the global parser registry. Language parsers register
// themselves via init() functions.
var DefaultRegistry = NewParserRegistry()
