// Package ts extracts code symbols from TypeScript and JavaScript source
// files using tree-sitter.
package ts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/c360studio/goldenthread/extract"
)

func init() {
	extract.DefaultRegistry.Register("typescript",
		[]string{".ts", ".tsx", ".mts", ".cts"},
		func(root string) extract.FileParser {
			return NewParser(root)
		})
	extract.DefaultRegistry.Register("javascript",
		[]string{".js", ".jsx", ".mjs", ".cjs"},
		func(root string) extract.FileParser {
			return NewParser(root)
		})
}

// Parser extracts symbols from TypeScript/JavaScript source files using
// tree-sitter.
type Parser struct {
	root string
}

// NewParser creates a new TypeScript/JavaScript parser rooted at root.
func NewParser(root string) *Parser {
	return &Parser{root: root}
}

// ParseFile parses a single TypeScript/JavaScript file and extracts
// classes, interfaces, type aliases, functions, and methods.
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

	parser := sitter.NewParser()
	parser.SetLanguage(treeSitterLanguage(filePath))

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		return nil, fmt.Errorf("syntax errors in %s", relPath)
	}

	var symbols []extract.Symbol
	p.walk(rootNode, content, relPath, &symbols)
	return symbols, nil
}

// treeSitterLanguage selects the grammar by extension.
func treeSitterLanguage(filePath string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".tsx":
		return tsx.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// walk visits top-level and export-wrapped declarations.
func (p *Parser) walk(node *sitter.Node, content []byte, relPath string, out *[]extract.Symbol) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		switch child.Type() {
		case "export_statement":
			// Recurse one level: "export class Foo {}" wraps the
			// declaration in an export_statement node.
			p.walk(child, content, relPath, out)

		case "class_declaration", "abstract_class_declaration":
			p.extractClass(child, content, relPath, out)

		case "interface_declaration":
			if sym, ok := named(child, content, relPath, extract.KindInterface, ""); ok {
				*out = append(*out, sym)
			}

		case "type_alias_declaration", "enum_declaration":
			if sym, ok := named(child, content, relPath, extract.KindType, ""); ok {
				*out = append(*out, sym)
			}

		case "function_declaration":
			if sym, ok := named(child, content, relPath, extract.KindFunction, ""); ok {
				*out = append(*out, sym)
			}

		case "lexical_declaration":
			p.extractArrowFunctions(child, content, relPath, out)
		}
	}
}

// extractClass extracts a class and its methods.
func (p *Parser) extractClass(node *sitter.Node, content []byte, relPath string, out *[]extract.Symbol) {
	sym, ok := named(node, content, relPath, extract.KindClass, "")
	if !ok {
		return
	}
	*out = append(*out, sym)

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member.Type() != "method_definition" {
			continue
		}
		if method, ok := named(member, content, relPath, extract.KindMethod, sym.Name); ok {
			*out = append(*out, method)
		}
	}
}

// extractArrowFunctions extracts "const f = () => ..." declarations.
func (p *Parser) extractArrowFunctions(node *sitter.Node, content []byte, relPath string, out *[]extract.Symbol) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		declarator := node.NamedChild(i)
		if declarator.Type() != "variable_declarator" {
			continue
		}
		value := declarator.ChildByFieldName("value")
		if value == nil || (value.Type() != "arrow_function" && value.Type() != "function_expression") {
			continue
		}
		nameNode := declarator.ChildByFieldName("name")
		if nameNode == nil || nameNode.Type() != "identifier" {
			continue
		}
		*out = append(*out, extract.Symbol{
			Name:      string(content[nameNode.StartByte():nameNode.EndByte()]),
			Kind:      extract.KindFunction,
			File:      relPath,
			StartLine: int(node.StartPoint().Row) + 1,
			EndLine:   int(node.EndPoint().Row) + 1,
		})
	}
}

// named builds a symbol from a declaration node's "name" field.
func named(node *sitter.Node, content []byte, relPath string, kind extract.Kind, parent string) (extract.Symbol, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return extract.Symbol{}, false
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
