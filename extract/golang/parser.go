// Package golang extracts code symbols from Go source files using go/ast.
package golang

import (
	"context"
	"fmt"
	goast "go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"

	"github.com/c360studio/goldenthread/extract"
)

func init() {
	extract.DefaultRegistry.Register("go", []string{".go"},
		func(root string) extract.FileParser {
			return NewParser(root)
		})
}

// Parser extracts symbols from Go source files.
type Parser struct {
	root string
}

// NewParser creates a new Go parser rooted at root.
func NewParser(root string) *Parser {
	return &Parser{root: root}
}

// ParseFile parses a single Go file and extracts its declarations.
func (p *Parser) ParseFile(ctx context.Context, filePath string) ([]extract.Symbol, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	relPath, err := filepath.Rel(p.root, filePath)
	if err != nil {
		relPath = filePath
	}
	relPath = filepath.ToSlash(relPath)

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, content, 0)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}

	var symbols []extract.Symbol
	for _, decl := range file.Decls {
		symbols = append(symbols, p.extractDeclaration(fset, decl, relPath)...)
	}
	return symbols, nil
}

func (p *Parser) extractDeclaration(fset *token.FileSet, decl goast.Decl, relPath string) []extract.Symbol {
	var symbols []extract.Symbol

	switch d := decl.(type) {
	case *goast.FuncDecl:
		symbols = append(symbols, p.extractFunction(fset, d, relPath))

	case *goast.GenDecl:
		if d.Tok != token.TYPE {
			return nil
		}
		for _, spec := range d.Specs {
			ts, ok := spec.(*goast.TypeSpec)
			if !ok {
				continue
			}
			symbols = append(symbols, extract.Symbol{
				Name:      ts.Name.Name,
				Kind:      typeKind(ts.Type),
				File:      relPath,
				StartLine: fset.Position(ts.Pos()).Line,
				EndLine:   fset.Position(ts.End()).Line,
			})
		}
	}
	return symbols
}

func (p *Parser) extractFunction(fset *token.FileSet, fn *goast.FuncDecl, relPath string) extract.Symbol {
	sym := extract.Symbol{
		Name:      fn.Name.Name,
		Kind:      extract.KindFunction,
		File:      relPath,
		StartLine: fset.Position(fn.Pos()).Line,
		EndLine:   fset.Position(fn.End()).Line,
	}

	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		sym.Kind = extract.KindMethod
		sym.Parent = receiverTypeName(fn.Recv.List[0].Type)
	}
	return sym
}

// receiverTypeName strips pointer and generic syntax from a receiver type.
func receiverTypeName(expr goast.Expr) string {
	switch t := expr.(type) {
	case *goast.Ident:
		return t.Name
	case *goast.StarExpr:
		return receiverTypeName(t.X)
	case *goast.IndexExpr:
		return receiverTypeName(t.X)
	case *goast.IndexListExpr:
		return receiverTypeName(t.X)
	}
	return ""
}

func typeKind(expr goast.Expr) extract.Kind {
	switch expr.(type) {
	case *goast.StructType:
		return extract.KindStruct
	case *goast.InterfaceType:
		return extract.KindInterface
	default:
		return extract.KindType
	}
}
