package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/localcode/codescope/internal/parser"
)

func parseAndChunk(t *testing.T, cfg Config, filePath, source string) []CodeChunk {
	t.Helper()
	p := parser.New()
	result, err := p.ParseSource(context.Background(), []byte(source))
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := New(cfg).ChunkFile(filePath, []byte(source), result)
	if err != nil {
		t.Fatal(err)
	}
	return chunks
}

func TestChunkCreation(t *testing.T) {
	source := "fn test() {\n    println!(\"hi\");\n}\n"
	chunks := parseAndChunk(t, DefaultConfig(), "src/main.rs", source)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.ID == "" {
		t.Error("expected non-empty chunk ID")
	}
	if c.Context.SymbolName != "test" {
		t.Fatalf("expected symbol test, got %q", c.Context.SymbolName)
	}
	if !strings.Contains(c.Content, "println!") {
		t.Fatalf("expected content to contain body, got %q", c.Content)
	}
}

func TestFormatForEmbedding(t *testing.T) {
	chunk := CodeChunk{
		Content: "fn test() {}",
		Context: ChunkContext{
			FilePath:      "src/main.rs",
			ModulePath:    []string{"crate", "main"},
			SymbolName:    "test",
			SymbolKind:    "function",
			Docstring:     "A test function",
			Imports:       []string{"std::io"},
			OutgoingCalls: []string{"println"},
			StartLine:     10,
			EndLine:       12,
		},
	}

	formatted := chunk.FormatForEmbedding()

	for _, want := range []string{
		"File: src/main.rs",
		"lines 10-12",
		"Module: crate::main",
		"Symbol: test (function)",
		"Purpose: A test function",
		"Imports: std::io",
		"Calls: println",
		"fn test() {}",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("expected formatted output to contain %q, got:\n%s", want, formatted)
		}
	}
}

func TestFormatForEmbeddingOmitsEmptyFields(t *testing.T) {
	chunk := CodeChunk{
		Content: "struct Empty;",
		Context: ChunkContext{
			FilePath:   "src/lib.rs",
			SymbolName: "Empty",
			SymbolKind: "struct",
		},
	}
	formatted := chunk.FormatForEmbedding()
	for _, unwanted := range []string{"Module:", "Purpose:", "Imports:", "Calls:"} {
		if strings.Contains(formatted, unwanted) {
			t.Errorf("did not expect %q in formatted output:\n%s", unwanted, formatted)
		}
	}
}

func TestChunkerCreationClampsOverlap(t *testing.T) {
	c := New(Config{OverlapPercentage: 5.0})
	if c.cfg.OverlapPercentage != 0.5 {
		t.Fatalf("expected clamp to 0.5, got %v", c.cfg.OverlapPercentage)
	}
	c2 := New(Config{OverlapPercentage: -1})
	if c2.cfg.OverlapPercentage != 0 {
		t.Fatalf("expected clamp to 0, got %v", c2.cfg.OverlapPercentage)
	}
	c3 := New(Config{})
	if c3.cfg.SourceRoot != "src" {
		t.Fatalf("expected default source root 'src', got %q", c3.cfg.SourceRoot)
	}
}

func TestExtractModulePath(t *testing.T) {
	c := New(DefaultConfig())

	cases := []struct {
		path string
		want []string
	}{
		{"/home/user/project/src/parser/mod.rs", []string{"crate", "parser"}},
		{"/home/user/project/src/lib.rs", []string{"crate", "lib"}},
		{"/home/user/project/src/chunker/mod.rs", []string{"crate", "chunker"}},
	}
	for _, tc := range cases {
		got := c.extractModulePath(tc.path)
		if len(got) != len(tc.want) {
			t.Fatalf("path %q: expected %v, got %v", tc.path, tc.want, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("path %q: expected %v, got %v", tc.path, tc.want, got)
			}
		}
	}
}

func TestExtractModulePathFallsBackToFileStem(t *testing.T) {
	c := New(DefaultConfig())
	got := c.extractModulePath("build.rs")
	if len(got) != 1 || got[0] != "build" {
		t.Fatalf("expected fallback [build], got %v", got)
	}
}

func TestChunkFilePropagatesContext(t *testing.T) {
	source := `
use std::collections::HashMap;

/// Looks up a value.
fn lookup(key: &str) -> i32 {
    helper(key);
    0
}

fn helper(key: &str) {}
`
	chunks := parseAndChunk(t, DefaultConfig(), "src/lib.rs", source)

	var lookup *CodeChunk
	for i := range chunks {
		if chunks[i].Context.SymbolName == "lookup" {
			lookup = &chunks[i]
		}
	}
	if lookup == nil {
		t.Fatal("expected a lookup chunk")
	}
	if lookup.Context.Docstring != "Looks up a value." {
		t.Fatalf("unexpected docstring: %q", lookup.Context.Docstring)
	}
	if len(lookup.Context.Imports) != 1 || lookup.Context.Imports[0] != "std::collections::HashMap" {
		t.Fatalf("unexpected imports: %v", lookup.Context.Imports)
	}
	found := false
	for _, call := range lookup.Context.OutgoingCalls {
		if call == "helper" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected helper among outgoing calls, got %v", lookup.Context.OutgoingCalls)
	}
	if len(lookup.Context.ModulePath) != 2 || lookup.Context.ModulePath[1] != "lib" {
		t.Fatalf("unexpected module path: %v", lookup.Context.ModulePath)
	}
}

func TestOverlapBetweenAdjacentChunks(t *testing.T) {
	source := `
fn first() {
    let a = 1;
    let b = 2;
    let c = 3;
    let d = 4;
    let e = 5;
}

fn second() {
    let f = 6;
    let g = 7;
    let h = 8;
    let i = 9;
    let j = 10;
}
`
	chunks := parseAndChunk(t, Config{OverlapPercentage: 0.5, SourceRoot: "src"}, "src/main.rs", source)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].OverlapNext == "" {
		t.Error("expected non-empty OverlapNext on first chunk")
	}
	if chunks[1].OverlapPrev == "" {
		t.Error("expected non-empty OverlapPrev on second chunk")
	}
}

func TestCalculateOverlapEmptyWhenPercentageZero(t *testing.T) {
	c := New(Config{OverlapPercentage: 0, SourceRoot: "src"})
	if got := c.calculateOverlap("a\nb\nc\n", true); got != "" {
		t.Fatalf("expected empty overlap, got %q", got)
	}
}
