// Package api exposes the tool surface (index, search, definition/
// reference/dependency/call-graph/complexity reads, health, cache clearing)
// as plain Go methods on a Service, independent of any RPC framework. A
// hosting RPC layer would call into this package, one method per tool, with
// directory-scoped project state resolved lazily.
package api

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/localcode/codescope/internal/chunker"
	"github.com/localcode/codescope/internal/config"
	"github.com/localcode/codescope/internal/embedder"
	"github.com/localcode/codescope/internal/health"
	"github.com/localcode/codescope/internal/indexer"
	"github.com/localcode/codescope/internal/lexical"
	"github.com/localcode/codescope/internal/merkle"
	"github.com/localcode/codescope/internal/metacache"
	"github.com/localcode/codescope/internal/parser"
	"github.com/localcode/codescope/internal/search"
	"github.com/localcode/codescope/internal/vector"
)

// IndexResult is the response shape for index_codebase:
// counters, wall-clock timing, and the resolved storage paths.
type IndexResult struct {
	Stats      indexer.Stats
	FileErrors []indexer.FileError
	Duration   time.Duration
	Paths      config.Paths
}

// SourceLocation points at a symbol definition's line range within a file.
type SourceLocation struct {
	FilePath  string
	Symbol    string
	Kind      string
	StartLine int
	EndLine   int
}

// ReferenceLocation points at the enclosing symbol of one call site that
// references a target symbol. Symbol identity is by simple name only, so
// two distinct functions with the same name in different files are
// indistinguishable beyond FilePath.
type ReferenceLocation struct {
	FilePath        string
	CallerSymbol    string
	CallerStartLine int
	CallerEndLine   int
}

// CallGraphView is a filtered view over one file's call graph.
// When Symbol is empty every caller->callees edge in the
// file is returned; otherwise only the edges touching Symbol are.
type CallGraphView struct {
	FilePath string
	Edges    map[string][]string
}

// ComplexityMetrics are thin, parse-derived counts: the shallow reads a
// ParseResult already makes available, not a full static-analysis pass.
type ComplexityMetrics struct {
	FilePath             string
	TotalLines           int
	SymbolCount          int
	FunctionCount        int
	AverageFunctionLines float64
	MaxOutgoingCalls     int
	ExternalDependencies int
}

// project bundles one directory's lazily-opened backing stores and derived
// components. Held for the lifetime of the Service so repeated tool calls
// against the same directory reuse open handles instead of reopening sqlite
// / bleve / chromem-go on every call.
type project struct {
	dir   string
	cfg   *config.Config
	paths config.Paths

	cache *metacache.Cache
	lex   *lexical.Index
	vec   *vector.Store
	emb   embedder.Provider

	indexer  *indexer.Indexer
	driver   *indexer.Driver
	searcher *search.Searcher
	monitor  *health.Monitor
}

// Service is the tool-surface entry point, holding one lazily-opened
// project per directory it has been asked to operate on.
type Service struct {
	mu       sync.Mutex
	projects map[string]*project
}

// NewService constructs an empty Service.
func NewService() *Service {
	return &Service{projects: make(map[string]*project)}
}

// projectFor resolves (opening if necessary) the project state for dir.
func (s *Service) projectFor(dir string) (*project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("api: resolve directory %s: %w", dir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.projects[abs]; ok {
		return p, nil
	}

	cfg, err := config.Load(abs)
	if err != nil {
		return nil, fmt.Errorf("api: load config for %s: %w", abs, err)
	}
	paths, err := config.ResolvePaths(abs)
	if err != nil {
		return nil, fmt.Errorf("api: resolve paths for %s: %w", abs, err)
	}

	if err := os.MkdirAll(paths.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("api: create cache dir: %w", err)
	}
	if err := os.MkdirAll(paths.LexicalDir, 0o755); err != nil {
		return nil, fmt.Errorf("api: create lexical dir: %w", err)
	}

	cache, err := metacache.Open(filepath.Join(paths.CacheDir, "metacache.db"))
	if err != nil {
		return nil, fmt.Errorf("api: open metadata cache: %w", err)
	}
	lex, err := lexical.OpenAt(paths.LexicalDir)
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("api: open lexical index: %w", err)
	}
	vec, err := vector.Open(paths.VectorDir, cfg.Embedding.Dimensions)
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("api: open vector store: %w", err)
	}
	emb := embedder.NewHashProvider(cfg.Embedding.Dimensions)

	ixCfg := indexer.DefaultConfig()
	ixCfg.MaxFileSizeBytes = cfg.Indexing.MaxFileSizeBytes
	ixCfg.EmbedBatchSize = cfg.Embedding.BatchSize
	ixCfg.Chunker = chunker.Config{OverlapPercentage: cfg.Chunking.OverlapPercentage, SourceRoot: cfg.Chunking.SourceRoot}

	ix := indexer.New(ixCfg, cache, lex, vec, emb)
	driver := indexer.NewDriver(ix, paths.SnapshotPath)

	searchCfg := search.Config{
		RRFK:           cfg.Search.RRFK,
		LexicalWeight:  cfg.Search.LexicalWeight,
		VectorWeight:   cfg.Search.VectorWeight,
		CandidateCount: cfg.Search.CandidateCount,
	}
	searcher := search.New(searchCfg, lex, vec, emb)
	monitor := health.New(lex, vec, paths.SnapshotPath)

	p := &project{
		dir: abs, cfg: cfg, paths: paths,
		cache: cache, lex: lex, vec: vec, emb: emb,
		indexer: ix, driver: driver, searcher: searcher, monitor: monitor,
	}
	s.projects[abs] = p
	return p, nil
}

// withWriteLock serializes index-mutating calls against a project using an
// on-disk advisory lock. The lexical index allows one writer at a time, so
// a second codescope process touching the same project's lexical directory
// must not race this one's commit.
func (p *project) withWriteLock(fn func() error) error {
	lockPath := filepath.Join(p.paths.LexicalDir, ".codescope.lock")
	fl := flock.New(lockPath)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("api: acquire index lock: %w", err)
	}
	defer fl.Unlock()
	return fn()
}

// IndexCodebase runs (or re-runs) indexing over directory, optionally
// forcing a from-scratch rebuild.
func (s *Service) IndexCodebase(ctx context.Context, directory string, forceReindex bool) (IndexResult, error) {
	p, err := s.projectFor(directory)
	if err != nil {
		return IndexResult{}, err
	}

	start := time.Now()
	var stats indexer.Stats
	var fileErrs []indexer.FileError

	err = p.withWriteLock(func() error {
		var runErr error
		if forceReindex {
			stats, fileErrs, runErr = p.driver.ForceReindex(ctx, p.dir)
		} else {
			stats, fileErrs, runErr = p.driver.IndexWithChangeDetection(ctx, p.dir)
		}
		return runErr
	})
	if err != nil {
		return IndexResult{Stats: stats, FileErrors: fileErrs, Duration: time.Since(start), Paths: p.paths}, err
	}

	return IndexResult{Stats: stats, FileErrors: fileErrs, Duration: time.Since(start), Paths: p.paths}, nil
}

// ensureIndexed triggers a first index if the project has never been
// indexed (no cached file metadata yet). Search calls auto-index so a fresh
// checkout is queryable without an explicit index step.
func (s *Service) ensureIndexed(ctx context.Context, p *project) error {
	n, err := p.cache.Len()
	if err != nil {
		return fmt.Errorf("api: check cache state: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err = s.IndexCodebase(ctx, p.dir, false)
	return err
}

// Search runs hybrid lexical+vector search over directory, auto-indexing
// first if the project has not been indexed yet.
func (s *Service) Search(ctx context.Context, directory, keyword string, limit int) ([]search.Result, error) {
	p, err := s.projectFor(directory)
	if err != nil {
		return nil, err
	}
	if err := s.ensureIndexed(ctx, p); err != nil {
		return nil, err
	}
	return p.searcher.Search(ctx, keyword, limit)
}

// GetSimilarCode runs vector-only search over directory, auto-indexing
// first if needed.
func (s *Service) GetSimilarCode(ctx context.Context, query, directory string, limit int) ([]search.Result, error) {
	p, err := s.projectFor(directory)
	if err != nil {
		return nil, err
	}
	if err := s.ensureIndexed(ctx, p); err != nil {
		return nil, err
	}
	return p.searcher.VectorOnlySearch(ctx, query, limit)
}

// FindDefinition locates every top-level symbol named symbolName under
// directory. Symbol identity is by simple name, so multiple matches across
// files are all returned.
func (s *Service) FindDefinition(ctx context.Context, symbolName, directory string) ([]SourceLocation, error) {
	var out []SourceLocation
	err := merkle.WalkSourceFiles(directory, func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, perr := parseFile(ctx, path)
		if perr != nil {
			return nil // unparsable file: skip and keep walking
		}
		for _, sym := range result.Symbols {
			if sym.Name == symbolName {
				out = append(out, SourceLocation{
					FilePath:  path,
					Symbol:    sym.Name,
					Kind:      string(sym.Kind),
					StartLine: sym.Range.StartLine,
					EndLine:   sym.Range.EndLine,
				})
			}
		}
		return nil
	})
	return out, err
}

// FindReferences locates every call site whose resolved callee name is
// symbolName, reporting the enclosing caller's symbol and range. The call
// graph does not track exact call-site lines, so the caller symbol's own
// range stands in for the reference's location.
func (s *Service) FindReferences(ctx context.Context, symbolName, directory string) ([]ReferenceLocation, error) {
	var out []ReferenceLocation
	err := merkle.WalkSourceFiles(directory, func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, perr := parseFile(ctx, path)
		if perr != nil {
			return nil
		}
		for _, caller := range result.CallGraph.Callers(symbolName) {
			for _, sym := range result.Symbols {
				if sym.Name == caller {
					out = append(out, ReferenceLocation{
						FilePath:        path,
						CallerSymbol:    caller,
						CallerStartLine: sym.Range.StartLine,
						CallerEndLine:   sym.Range.EndLine,
					})
				}
			}
		}
		return nil
	})
	return out, err
}

// GetDependencies parses filePath and returns its import declarations.
func (s *Service) GetDependencies(ctx context.Context, filePath string) ([]parser.Import, error) {
	result, err := parseFile(ctx, filePath)
	if err != nil {
		return nil, err
	}
	return result.Imports, nil
}

// GetCallGraph parses filePath and returns a view over its call graph,
// filtered to symbolName if given.
func (s *Service) GetCallGraph(ctx context.Context, filePath, symbolName string) (CallGraphView, error) {
	result, err := parseFile(ctx, filePath)
	if err != nil {
		return CallGraphView{}, err
	}

	view := CallGraphView{FilePath: filePath, Edges: make(map[string][]string)}
	if symbolName != "" {
		view.Edges[symbolName] = result.CallGraph.Callees(symbolName)
		return view, nil
	}
	for _, sym := range result.Symbols {
		if sym.Kind == parser.KindFunction {
			view.Edges[sym.Name] = result.CallGraph.Callees(sym.Name)
		}
	}
	return view, nil
}

// AnalyzeComplexity parses filePath and reports shallow, parse-derived size
// metrics.
func (s *Service) AnalyzeComplexity(ctx context.Context, filePath string) (ComplexityMetrics, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return ComplexityMetrics{}, fmt.Errorf("api: read %s: %w", filePath, err)
	}
	result, err := parseFile(ctx, filePath)
	if err != nil {
		return ComplexityMetrics{}, err
	}

	metrics := ComplexityMetrics{
		FilePath:    filePath,
		TotalLines:  bytes.Count(content, []byte("\n")) + 1,
		SymbolCount: len(result.Symbols),
	}

	var totalFunctionLines int
	externalDeps := make(map[string]bool)
	for _, imp := range result.Imports {
		if seg := firstSegment(imp.Path); seg != "" {
			externalDeps[seg] = true
		}
	}
	metrics.ExternalDependencies = len(externalDeps)

	for _, sym := range result.Symbols {
		if sym.Kind != parser.KindFunction {
			continue
		}
		metrics.FunctionCount++
		totalFunctionLines += sym.Range.EndLine - sym.Range.StartLine + 1
		if n := len(result.CallGraph.Callees(sym.Name)); n > metrics.MaxOutgoingCalls {
			metrics.MaxOutgoingCalls = n
		}
	}
	if metrics.FunctionCount > 0 {
		metrics.AverageFunctionLines = float64(totalFunctionLines) / float64(metrics.FunctionCount)
	}

	return metrics, nil
}

func firstSegment(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == ':' {
			return path[:i]
		}
	}
	return path
}

// ReadFileContent reads filePath as text, rejecting binary content. A file
// is treated as binary if its first 8KB
// contains a NUL byte, the same heuristic git and most text editors use.
func (s *Service) ReadFileContent(ctx context.Context, filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("api: read %s: %w", filePath, err)
	}
	probe := content
	if len(probe) > 8192 {
		probe = probe[:8192]
	}
	if bytes.IndexByte(probe, 0) != -1 {
		return "", fmt.Errorf("api: %s appears to be binary, refusing to read as text", filePath)
	}
	return string(content), nil
}

// HealthCheck rolls up liveness for directory's lexical index, vector
// store, and Merkle snapshot.
func (s *Service) HealthCheck(ctx context.Context, directory string) (health.SystemHealth, error) {
	p, err := s.projectFor(directory)
	if err != nil {
		return health.SystemHealth{}, err
	}
	return p.monitor.CheckHealth(ctx), nil
}

// ClearCache drops every derived store for directory: metadata cache,
// lexical documents, vector collection, and the Merkle snapshot.
func (s *Service) ClearCache(ctx context.Context, directory string) error {
	p, err := s.projectFor(directory)
	if err != nil {
		return err
	}
	return p.withWriteLock(func() error {
		if err := p.indexer.ClearAllData(ctx); err != nil {
			return err
		}
		return merkle.RemoveSnapshot(p.paths.SnapshotPath)
	})
}

// parseFile is the shared single-file parse helper used by every read-only
// tool operation that doesn't need the project's persisted indexes.
func parseFile(ctx context.Context, path string) (*parser.ParseResult, error) {
	p := parser.New()
	return p.Parse(ctx, path)
}
