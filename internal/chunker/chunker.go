// Package chunker splits a parsed source file into one CodeChunk per
// top-level symbol and enriches each with retrieval context.
package chunker

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/localcode/codescope/internal/parser"
)

// Config controls chunking behavior.
type Config struct {
	// OverlapPercentage is clamped to [0, 0.5]; default 0.2 (20%).
	OverlapPercentage float64
	// SourceRoot is the path component after which module path segments are
	// derived (e.g. "src"). Defaults to "src".
	SourceRoot string
}

// DefaultConfig returns the chunker's default settings.
func DefaultConfig() Config {
	return Config{OverlapPercentage: 0.2, SourceRoot: "src"}
}

func (c Config) normalized() Config {
	if c.OverlapPercentage < 0 {
		c.OverlapPercentage = 0
	}
	if c.OverlapPercentage > 0.5 {
		c.OverlapPercentage = 0.5
	}
	if c.SourceRoot == "" {
		c.SourceRoot = "src"
	}
	return c
}

// ChunkContext is the retrieval context attached to a CodeChunk.
type ChunkContext struct {
	FilePath       string
	ModulePath     []string
	SymbolName     string
	SymbolKind     string
	Docstring      string
	Imports        []string
	OutgoingCalls  []string
	StartLine      int
	EndLine        int
}

// CodeChunk is one symbol's worth of source, ready for embedding/indexing.
type CodeChunk struct {
	ID          string
	Content     string
	Context     ChunkContext
	OverlapPrev string
	OverlapNext string
}

// Chunker splits parsed files into CodeChunks.
type Chunker struct {
	cfg Config
}

// New creates a Chunker with cfg, clamping OverlapPercentage to [0, 0.5] and
// defaulting an empty SourceRoot to "src".
func New(cfg Config) *Chunker {
	return &Chunker{cfg: cfg.normalized()}
}

// ChunkFile produces one chunk per symbol in result, in parse order, with
// overlap text filled in between adjacent chunks.
func (c *Chunker) ChunkFile(filePath string, source []byte, result *parser.ParseResult) ([]CodeChunk, error) {
	modulePath := c.extractModulePath(filePath)

	importStrings := make([]string, 0, len(result.Imports))
	for _, imp := range result.Imports {
		importStrings = append(importStrings, imp.Path)
	}

	lines := strings.Split(string(source), "\n")

	chunks := make([]CodeChunk, 0, len(result.Symbols))
	for _, sym := range result.Symbols {
		content := extractSymbolCode(lines, sym.Range.StartLine, sym.Range.EndLine)

		chunks = append(chunks, CodeChunk{
			ID:      uuid.NewString(),
			Content: content,
			Context: ChunkContext{
				FilePath:      filePath,
				ModulePath:    modulePath,
				SymbolName:    sym.Name,
				SymbolKind:    string(sym.Kind),
				Docstring:     sym.Docstring,
				Imports:       importStrings,
				OutgoingCalls: result.CallGraph.Callees(sym.Name),
				StartLine:     sym.Range.StartLine,
				EndLine:       sym.Range.EndLine,
			},
		})
	}

	c.addOverlap(chunks)
	return chunks, nil
}

func extractSymbolCode(lines []string, startLine, endLine int) string {
	start := startLine - 1
	if start < 0 {
		start = 0
	}
	if start >= len(lines) {
		return ""
	}
	end := endLine
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

// extractModulePath derives a module path from filePath by taking the
// components after the configured SourceRoot marker and stripping the
// source extension; a "mod" file contributes no segment of its own.
func (c *Chunker) extractModulePath(filePath string) []string {
	var parts []string
	foundRoot := false

	components := strings.Split(filepath.ToSlash(filePath), "/")
	for _, name := range components {
		if name == "" {
			continue
		}
		if name == c.cfg.SourceRoot {
			foundRoot = true
			parts = append(parts, "crate")
			continue
		}
		if foundRoot {
			clean := strings.TrimSuffix(name, filepath.Ext(name))
			if clean != "mod" {
				parts = append(parts, clean)
			}
		}
	}

	if len(parts) == 0 {
		base := filepath.Base(filePath)
		parts = append(parts, strings.TrimSuffix(base, filepath.Ext(base)))
	}
	return parts
}

// addOverlap fills OverlapPrev/OverlapNext for adjacent chunks in place.
func (c *Chunker) addOverlap(chunks []CodeChunk) {
	for i := range chunks {
		if i > 0 {
			chunks[i].OverlapPrev = c.calculateOverlap(chunks[i-1].Content, false)
		}
		if i < len(chunks)-1 {
			chunks[i].OverlapNext = c.calculateOverlap(chunks[i].Content, true)
		}
	}
}

// calculateOverlap returns the trailing (fromEnd) or leading lines of
// content proportional to the configured overlap percentage, or "" if the
// computed overlap is empty.
func (c *Chunker) calculateOverlap(content string, fromEnd bool) string {
	if content == "" {
		return ""
	}
	lines := strings.Split(content, "\n")
	overlapLines := int(ceilFloat(float64(len(lines)) * c.cfg.OverlapPercentage))
	if overlapLines == 0 {
		return ""
	}
	if overlapLines > len(lines) {
		overlapLines = len(lines)
	}

	if fromEnd {
		return strings.Join(lines[len(lines)-overlapLines:], "\n")
	}
	return strings.Join(lines[:overlapLines], "\n")
}

func ceilFloat(f float64) float64 {
	i := int64(f)
	if f > float64(i) {
		return float64(i + 1)
	}
	return float64(i)
}

// FormatForEmbedding renders a chunk as the natural-language blob handed to
// the embedding adapter, following the contextual-retrieval pattern: file
// and location, module, symbol, docstring, a capped preview of imports and
// outgoing calls, then the code itself.
func (c CodeChunk) FormatForEmbedding() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("// File: %s", c.Context.FilePath))
	parts = append(parts, fmt.Sprintf("// Location: lines %d-%d", c.Context.StartLine, c.Context.EndLine))

	if len(c.Context.ModulePath) > 0 {
		parts = append(parts, fmt.Sprintf("// Module: %s", strings.Join(c.Context.ModulePath, "::")))
	}

	parts = append(parts, fmt.Sprintf("// Symbol: %s (%s)", c.Context.SymbolName, c.Context.SymbolKind))

	if c.Context.Docstring != "" {
		parts = append(parts, fmt.Sprintf("// Purpose: %s", c.Context.Docstring))
	}

	if len(c.Context.Imports) > 0 {
		parts = append(parts, fmt.Sprintf("// Imports: %s", strings.Join(capList(c.Context.Imports, 5), ", ")))
	}

	if len(c.Context.OutgoingCalls) > 0 {
		parts = append(parts, fmt.Sprintf("// Calls: %s", strings.Join(capList(c.Context.OutgoingCalls, 5), ", ")))
	}

	parts = append(parts, "")
	parts = append(parts, c.Content)

	return strings.Join(parts, "\n")
}

func capList(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
