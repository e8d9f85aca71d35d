package parser

import (
	"context"
	"testing"
)

func parse(t *testing.T, source string) *ParseResult {
	t.Helper()
	p := New()
	result, err := p.ParseSource(context.Background(), []byte(source))
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func findSymbol(result *ParseResult, name string) *Symbol {
	for i := range result.Symbols {
		if result.Symbols[i].Name == name {
			return &result.Symbols[i]
		}
	}
	return nil
}

func TestExtractFunctionSymbol(t *testing.T) {
	result := parse(t, `
/// Adds two numbers.
pub async fn add(a: i32, b: i32) -> i32 {
    a + b
}
`)
	sym := findSymbol(result, "add")
	if sym == nil {
		t.Fatal("expected to find symbol add")
	}
	if sym.Kind != KindFunction {
		t.Fatalf("expected function kind, got %s", sym.Kind)
	}
	if sym.Visibility != VisPublic {
		t.Fatalf("expected public visibility, got %s", sym.Visibility)
	}
	if !sym.IsAsync {
		t.Fatal("expected async flag set")
	}
	if sym.Docstring != "Adds two numbers." {
		t.Fatalf("unexpected docstring: %q", sym.Docstring)
	}
}

func TestExtractStructAndImpl(t *testing.T) {
	result := parse(t, `
struct Counter {
    value: i32,
}

impl Counter {
    fn new() -> Self {
        Counter { value: 0 }
    }
}

impl Display for Counter {
    fn fmt(&self) {}
}
`)
	if findSymbol(result, "Counter") == nil {
		t.Fatal("expected struct symbol Counter")
	}

	var inherent, traitImpl *Symbol
	for i := range result.Symbols {
		s := &result.Symbols[i]
		if s.Kind != KindImpl {
			continue
		}
		if s.TraitName == "" {
			inherent = s
		} else {
			traitImpl = s
		}
	}
	if inherent == nil || inherent.TypeName != "Counter" {
		t.Fatalf("expected inherent impl for Counter, got %+v", inherent)
	}
	if traitImpl == nil || traitImpl.TraitName != "Display" || traitImpl.TypeName != "Counter" {
		t.Fatalf("expected Display for Counter impl, got %+v", traitImpl)
	}
}

func TestCallGraphSimple(t *testing.T) {
	result := parse(t, `
fn caller() {
    callee();
}
fn callee() {}
`)
	if !result.CallGraph.HasCall("caller", "callee") {
		t.Fatal("expected caller -> callee edge")
	}
}

func TestCallGraphMethodAndNested(t *testing.T) {
	result := parse(t, `
fn process() {
    let s = String::new();
    s.push_str("x");
}
fn outer() {
    inner();
}
fn inner() {
    helper();
}
fn helper() {}
`)
	callees := result.CallGraph.Callees("process")
	if !contains(callees, "new") || !contains(callees, "push_str") {
		t.Fatalf("expected new and push_str callees, got %v", callees)
	}
	if !result.CallGraph.HasCall("outer", "inner") {
		t.Fatal("expected outer -> inner")
	}
	if result.CallGraph.HasCall("outer", "helper") {
		t.Fatal("outer must not directly call helper")
	}
}

func contains(items []string, target string) bool {
	for _, it := range items {
		if it == target {
			return true
		}
	}
	return false
}

func TestImportsSimpleAndGrouped(t *testing.T) {
	result := parse(t, `
use std::collections::HashMap;
use std::collections::{HashSet, BTreeMap};
use std::io::*;
`)
	if len(result.Imports) != 3 {
		t.Fatalf("expected 3 imports, got %d: %+v", len(result.Imports), result.Imports)
	}

	var simple, grouped, glob *Import
	for i := range result.Imports {
		imp := &result.Imports[i]
		switch {
		case imp.Glob:
			glob = imp
		case len(imp.Items) > 0:
			grouped = imp
		default:
			simple = imp
		}
	}

	if simple == nil || simple.Path != "std::collections::HashMap" {
		t.Fatalf("unexpected simple import: %+v", simple)
	}
	if grouped == nil || grouped.Path != "std::collections" {
		t.Fatalf("unexpected grouped import path: %+v", grouped)
	}
	if grouped == nil || !contains(grouped.Items, "HashSet") || !contains(grouped.Items, "BTreeMap") {
		t.Fatalf("expected grouped items HashSet/BTreeMap, got %+v", grouped)
	}
	if glob == nil || glob.Path != "std::io" {
		t.Fatalf("unexpected glob import: %+v", glob)
	}
}

func TestExternalDependencies(t *testing.T) {
	result := parse(t, `
use std::collections::HashMap;
use serde::Serialize;
use tokio::runtime::Runtime;
`)
	deps := result.ExternalDependencies()
	for _, want := range []string{"std", "serde", "tokio"} {
		if !contains(deps, want) {
			t.Fatalf("expected dependency %q in %v", want, deps)
		}
	}
}

func TestTypeReferenceContexts(t *testing.T) {
	result := parse(t, `
struct Container {
    parser: RustParser,
}

impl Container {
    fn new(parser: RustParser) -> Self {
        Self { parser }
    }
}

fn process(items: Vec<RustParser>) {
    let p: RustParser = create();
}
`)
	var hasField, hasParam, hasGeneric, hasLet bool
	for _, ref := range result.TypeReferences {
		if ref.TypeName != "RustParser" {
			continue
		}
		switch ref.Context {
		case CtxStructField:
			hasField = ref.StructName == "Container" && ref.FieldName == "parser"
		case CtxFunctionParameter:
			hasParam = true
		case CtxGenericArgument:
			hasGeneric = true
		case CtxLetBinding:
			hasLet = true
		}
	}
	if !hasField {
		t.Error("expected a struct field reference for Container.parser")
	}
	if !hasParam {
		t.Error("expected a function parameter reference")
	}
	if !hasGeneric {
		t.Error("expected a generic argument reference")
	}
	if !hasLet {
		t.Error("expected a let-binding reference")
	}
}
