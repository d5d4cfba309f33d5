// Package python extracts code symbols from Python source files using
// tree-sitter.
package python

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/c360studio/goldenthread/extract"
)

func init() {
	extract.DefaultRegistry.Register("python", []string{".py"},
		func(root string) extract.FileParser {
			return NewParser(root)
		})
}

// Parser extracts symbols from Python source files using tree-sitter.
type Parser struct {
	root   string
	parser *sitter.Parser
}

// NewParser creates a new Python parser rooted at root.
func NewParser(root string) *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{root: root, parser: p}
}

// ParseFile parses a single Python file and extracts classes, functions,
// and methods.
func (p *Parser) ParseFile(ctx context.Context, filePath string) ([]extract.Symbol, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	relPath, err := filepath.Rel(p.root, filePath)
	if err != nil {
		relPath = filePath
	}
	relPath = filepath.ToSlash(relPath)

	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		return nil, fmt.Errorf("syntax errors in %s", relPath)
	}

	var symbols []extract.Symbol
	for i := 0; i < int(rootNode.NamedChildCount()); i++ {
		symbols = append(symbols, p.extractNode(rootNode.NamedChild(i), content, relPath)...)
	}
	return symbols, nil
}

// extractNode extracts symbols from a top-level AST node.
func (p *Parser) extractNode(node *sitter.Node, content []byte, relPath string) []extract.Symbol {
	switch node.Type() {
	case "class_definition":
		return p.extractClass(node, content, relPath)

	case "function_definition":
		if sym, ok := p.extractCallable(node, content, relPath, ""); ok {
			return []extract.Symbol{sym}
		}

	case "decorated_definition":
		if def := findDefinition(node); def != nil {
			switch def.Type() {
			case "class_definition":
				return p.extractClass(def, content, relPath)
			case "function_definition":
				if sym, ok := p.extractCallable(def, content, relPath, ""); ok {
					return []extract.Symbol{sym}
				}
			}
		}
	}
	return nil
}

// extractClass extracts a class and its methods.
func (p *Parser) extractClass(node *sitter.Node, content []byte, relPath string) []extract.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	className := string(content[nameNode.StartByte():nameNode.EndByte()])

	symbols := []extract.Symbol{{
		Name:      className,
		Kind:      extract.KindClass,
		File:      relPath,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}}

	body := node.ChildByFieldName("body")
	if body == nil {
		return symbols
	}

	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		def := child
		if child.Type() == "decorated_definition" {
			def = findDefinition(child)
		}
		if def != nil && def.Type() == "function_definition" {
			if sym, ok := p.extractCallable(def, content, relPath, className); ok {
				symbols = append(symbols, sym)
			}
		}
	}
	return symbols
}

// extractCallable extracts a function or method symbol.
func (p *Parser) extractCallable(node *sitter.Node, content []byte, relPath, parent string) (extract.Symbol, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return extract.Symbol{}, false
	}

	kind := extract.KindFunction
	if parent != "" {
		kind = extract.KindMethod
	}
	return extract.Symbol{
		Name:      string(content[nameNode.StartByte():nameNode.EndByte()]),
		Kind:      kind,
		File:      relPath,
		Parent:    parent,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}, true
}

// findDefinition finds the class or function node inside a
// decorated_definition.
func findDefinition(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "class_definition", "function_definition":
			return child
		}
	}
	return nil
}
