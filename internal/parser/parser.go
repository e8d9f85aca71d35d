// Package parser extracts symbols, a call graph, imports, and type
// references from Rust source text using tree-sitter.
package parser

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// SymbolKind is the kind of top-level (or impl/module-nested) language item.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindStruct    SymbolKind = "struct"
	KindEnum      SymbolKind = "enum"
	KindTrait     SymbolKind = "trait"
	KindImpl      SymbolKind = "impl"
	KindModule    SymbolKind = "module"
	KindConstant  SymbolKind = "constant"
	KindStatic    SymbolKind = "static"
	KindTypeAlias SymbolKind = "type_alias"
)

// Visibility models Rust's visibility modifiers.
type Visibility string

const (
	VisPublic     Visibility = "public"
	VisCrateLocal Visibility = "crate-local"
	VisRestricted Visibility = "restricted-to-path"
	VisPrivate    Visibility = "private"
)

// Range is an inclusive line/byte span, 1-indexed on lines.
type Range struct {
	StartLine int
	EndLine   int
	StartByte int
	EndByte   int
}

// Symbol is one extracted language item.
type Symbol struct {
	Kind       SymbolKind
	Name       string
	Range      Range
	Docstring  string
	Visibility Visibility

	// Function-only flags.
	IsAsync  bool
	IsUnsafe bool
	IsConst  bool

	// Impl-only fields.
	TraitName string // empty for inherent impls
	TypeName  string
}

// Import is one `use` declaration.
type Import struct {
	Path  string
	Glob  bool
	Items []string
}

// TypeUsageContext is how a TypeReference's type name is being used.
type TypeUsageContext string

const (
	CtxFunctionParameter TypeUsageContext = "function-parameter"
	CtxFunctionReturn    TypeUsageContext = "function-return"
	CtxStructField       TypeUsageContext = "struct-field"
	CtxImplBlock         TypeUsageContext = "impl-block"
	CtxLetBinding        TypeUsageContext = "let-binding"
	CtxGenericArgument   TypeUsageContext = "generic-argument"
)

// TypeReference records a single occurrence of a type name in context.
type TypeReference struct {
	TypeName     string
	Context      TypeUsageContext
	FunctionName string // set for FunctionParameter/FunctionReturn
	StructName   string // set for StructField
	FieldName    string // set for StructField
	TraitName    string // set for ImplBlock (empty = inherent impl)
	Line         int
}

// ParseResult is the complete, read-only extraction from one source file.
type ParseResult struct {
	Symbols        []Symbol
	CallGraph      *CallGraph
	Imports        []Import
	TypeReferences []TypeReference
}

// Parser parses Rust source text. A Parser is not safe for concurrent use;
// callers running parse work in parallel should construct one per goroutine;
// construction is cheap.
type Parser struct {
	language *sitter.Language
}

// New creates a Rust parser.
func New() *Parser {
	return &Parser{language: sitter.NewLanguage(rust.Language())}
}

// Parse reads and parses the file at path.
func (p *Parser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parser: read %s: %w", path, err)
	}
	return p.ParseSource(ctx, source)
}

// ParseSource parses raw Rust source text.
func (p *Parser) ParseSource(ctx context.Context, source []byte) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sp := sitter.NewParser()
	defer sp.Close()
	sp.SetLanguage(p.language)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parser: failed to parse source")
	}
	defer tree.Close()

	root := tree.RootNode()

	result := &ParseResult{CallGraph: newCallGraph()}
	extractSymbols(root, source, result)
	extractCallGraph(root, source, result.CallGraph, "")
	extractImports(root, source, result)
	extractTypeReferences(root, source, result, "", "")

	return result, nil
}
