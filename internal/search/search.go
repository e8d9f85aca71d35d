// Package search runs hybrid lexical+vector retrieval and merges both legs
// with Reciprocal Rank Fusion, degrading gracefully to a single leg if the
// other fails.
package search

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/localcode/codescope/internal/chunker"
	"github.com/localcode/codescope/internal/embedder"
	"github.com/localcode/codescope/internal/lexical"
	"github.com/localcode/codescope/internal/vector"
)

// Config tunes the RRF merge.
type Config struct {
	// RRFK is the RRF rank-discount constant, typically 60.
	RRFK float64
	// LexicalWeight and VectorWeight scale each leg's contribution before
	// summing; defaults are 0.5/0.5.
	LexicalWeight float64
	VectorWeight  float64
	// CandidateCount is how many results each leg fetches before merging.
	CandidateCount int
}

// DefaultConfig returns the stock RRF parameters.
func DefaultConfig() Config {
	return Config{RRFK: 60, LexicalWeight: 0.5, VectorWeight: 0.5, CandidateCount: 100}
}

// Result is one fused hit, carrying enough per-leg detail for callers that
// want to explain a ranking.
type Result struct {
	ChunkID      string
	Score        float64
	LexicalScore *float64
	VectorScore  *float32
	LexicalRank  *int
	VectorRank   *int
	Chunk        chunker.CodeChunk
}

// Searcher runs hybrid search over a lexical index and a vector store that
// share the same chunk id space.
type Searcher struct {
	cfg      Config
	lex      *lexical.Index
	vec      *vector.Store
	embedder embedder.Provider

	// fallbackActive reports whether the most recent Search call degraded
	// to a single leg.
	fallbackActive bool
}

// New constructs a Searcher over already-opened backing stores.
func New(cfg Config, lex *lexical.Index, vec *vector.Store, emb embedder.Provider) *Searcher {
	return &Searcher{cfg: cfg, lex: lex, vec: vec, embedder: emb}
}

// FallbackActive reports whether the most recent Search call ran with one
// leg unavailable.
func (s *Searcher) FallbackActive() bool {
	return s.fallbackActive
}

// legOutcome holds one leg's results or the error it failed with.
type legOutcome struct {
	lexical []lexical.Result
	vector  []vector.SearchResult
	lexErr  error
	vecErr  error
}

// Search runs both legs concurrently and fuses them with RRF. If one leg
// errors, the other leg's results are still returned and fallbackActive is
// set. If both error, Search reports both underlying failures.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 15
	}

	return s.SearchWithK(ctx, query, limit, s.cfg.RRFK)
}

// SearchWithK runs Search with an overridden RRF k, leaving the Searcher's
// own configured k untouched. Used by internal/quality to sweep candidate k
// values against a labeled test set.
func (s *Searcher) SearchWithK(ctx context.Context, query string, limit int, k float64) ([]Result, error) {
	if limit <= 0 {
		limit = 15
	}

	outcome, err := s.runLegs(ctx, query)
	if err != nil {
		return nil, err
	}

	s.fallbackActive = outcome.lexErr != nil || outcome.vecErr != nil

	merged := s.reciprocalRankFusion(outcome.lexical, outcome.vector, k)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// runLegs queries the lexical and vector legs in parallel. The vector leg
// first embeds the query text (ModeQuery) before searching.
func (s *Searcher) runLegs(ctx context.Context, query string) (legOutcome, error) {
	var out legOutcome

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		results, err := s.lex.Search(gctx, query, s.cfg.CandidateCount)
		if err != nil {
			out.lexErr = err
			return nil
		}
		out.lexical = results
		return nil
	})

	g.Go(func() error {
		queryVec, err := s.embedder.EmbedOne(gctx, query, embedder.ModeQuery)
		if err != nil {
			out.vecErr = err
			return nil
		}
		results, err := s.vec.Search(gctx, queryVec, s.cfg.CandidateCount)
		if err != nil {
			out.vecErr = err
			return nil
		}
		out.vector = results
		return nil
	})

	if err := g.Wait(); err != nil {
		return out, err
	}

	if out.lexErr != nil && out.vecErr != nil {
		return out, fmt.Errorf("search: both engines failed - lexical: %v, vector: %v", out.lexErr, out.vecErr)
	}
	return out, nil
}

// rrfEntry accumulates one chunk's fused score across legs.
type rrfEntry struct {
	chunkID      string
	score        float64
	lexicalScore *float64
	vectorScore  *float32
	lexicalRank  *int
	vectorRank   *int
	chunk        chunker.CodeChunk
}

// reciprocalRankFusion implements score(item) = Σ weight_leg / (k + rank_leg)
// over whichever legs actually returned results.
func (s *Searcher) reciprocalRankFusion(lexResults []lexical.Result, vecResults []vector.SearchResult, k float64) []Result {
	entries := make(map[string]*rrfEntry)

	for rank, r := range lexResults {
		e, ok := entries[r.ChunkID]
		if !ok {
			e = &rrfEntry{chunkID: r.ChunkID, chunk: r.Chunk}
			entries[r.ChunkID] = e
		}
		rrf := 1.0 / (k + float64(rank+1))
		e.score += rrf * s.cfg.LexicalWeight
		score := r.Score
		e.lexicalScore = &score
		rankCopy := rank + 1
		e.lexicalRank = &rankCopy
	}

	for rank, r := range vecResults {
		e, ok := entries[r.ChunkID]
		if !ok {
			e = &rrfEntry{chunkID: r.ChunkID, chunk: r.Chunk}
			entries[r.ChunkID] = e
		}
		rrf := 1.0 / (k + float64(rank+1))
		e.score += rrf * s.cfg.VectorWeight
		score := r.Score
		e.vectorScore = &score
		rankCopy := rank + 1
		e.vectorRank = &rankCopy
	}

	out := make([]Result, 0, len(entries))
	for _, e := range entries {
		out = append(out, Result{
			ChunkID:      e.chunkID,
			Score:        e.score,
			LexicalScore: e.lexicalScore,
			VectorScore:  e.vectorScore,
			LexicalRank:  e.lexicalRank,
			VectorRank:   e.vectorRank,
			Chunk:        e.chunk,
		})
	}

	// Sort by descending score, breaking ties by chunk id for determinism.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}

// VectorOnlySearch bypasses the lexical leg entirely, used for callers that
// explicitly want pure semantic similarity.
func (s *Searcher) VectorOnlySearch(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 15
	}

	queryVec, err := s.embedder.EmbedOne(ctx, query, embedder.ModeQuery)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}
	results, err := s.vec.Search(ctx, queryVec, limit)
	if err != nil {
		return nil, fmt.Errorf("search: vector-only: %w", err)
	}

	out := make([]Result, 0, len(results))
	for rank, r := range results {
		score := r.Score
		rankCopy := rank + 1
		out = append(out, Result{
			ChunkID:     r.ChunkID,
			Score:       float64(r.Score),
			VectorScore: &score,
			VectorRank:  &rankCopy,
			Chunk:       r.Chunk,
		})
	}
	return out, nil
}
